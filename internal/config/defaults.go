package config

const (
	defaultDataDir             = "~/.local/share/chorus/data"
	defaultLogDir              = "~/.local/share/chorus/logs"
	defaultAPIBind             = "127.0.0.1:7823"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMReferer          = "https://github.com/chorus-audio/chorus"
	defaultLLMTitle            = "Chorus Translator"
	defaultLLMTimeoutSeconds   = 60
	defaultElevenLabsBaseURL   = "https://api.elevenlabs.io/v1"
	defaultElevenLabsModel     = "eleven_multilingual_v2"
	defaultElevenLabsStability = 0.5
	defaultElevenLabsSimilar   = 0.75
	defaultCartesiaBaseURL     = "https://api.cartesia.ai"
	defaultCartesiaModel       = "sonic-2"
	defaultTTSTimeoutSeconds   = 120
	defaultTTSChunkSize        = 4000
	defaultStorageTimeout      = 120
	defaultSourceLanguage      = "en"
	defaultCacheTTLDays        = 30
	defaultBatchSize           = 5
	defaultBatchPauseMillis    = 1000
	defaultMaxOutputRatio      = 3.0
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 300
	defaultLanguageConcurrency = 4
	defaultSecondsPerCue       = 4.0
	defaultNotifyTimeout       = 10
)

var defaultSupportedLanguages = []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "hi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			ElevenLabs: ElevenLabs{
				BaseURL:        defaultElevenLabsBaseURL,
				ModelID:        defaultElevenLabsModel,
				Stability:      defaultElevenLabsStability,
				Similarity:     defaultElevenLabsSimilar,
				TimeoutSeconds: defaultTTSTimeoutSeconds,
			},
			Cartesia: Cartesia{
				BaseURL:        defaultCartesiaBaseURL,
				ModelID:        defaultCartesiaModel,
				TimeoutSeconds: defaultTTSTimeoutSeconds,
			},
			ChunkSize: defaultTTSChunkSize,
		},
		Storage: Storage{
			TimeoutSeconds: defaultStorageTimeout,
		},
		Translation: Translation{
			SourceLanguage:     defaultSourceLanguage,
			SupportedLanguages: append([]string(nil), defaultSupportedLanguages...),
			CacheTTLDays:       defaultCacheTTLDays,
			BatchSize:          defaultBatchSize,
			BatchPauseMillis:   defaultBatchPauseMillis,
			MaxOutputRatio:     defaultMaxOutputRatio,
		},
		ContentSync: ContentSync{
			TimeoutSeconds: defaultStorageTimeout,
		},
		Subtitles: Subtitles{
			Enabled:       true,
			SecondsPerCue: defaultSecondsPerCue,
		},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			LanguageConcurrency: defaultLanguageConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobCompleted:   true,
			JobFailed:      true,
			PartialSuccess: true,
		},
	}
}
