package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeStorage()
	c.normalizeTranslation()
	c.normalizeContentSync()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CHORUS_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	el := &c.TTS.ElevenLabs
	el.APIKey = strings.TrimSpace(el.APIKey)
	if el.APIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			el.APIKey = strings.TrimSpace(value)
		}
	}
	el.BaseURL = strings.TrimSpace(el.BaseURL)
	if el.BaseURL == "" {
		el.BaseURL = defaultElevenLabsBaseURL
	}
	if el.ModelID == "" {
		el.ModelID = defaultElevenLabsModel
	}
	if el.Stability <= 0 {
		el.Stability = defaultElevenLabsStability
	}
	if el.Similarity <= 0 {
		el.Similarity = defaultElevenLabsSimilar
	}
	if el.TimeoutSeconds <= 0 {
		el.TimeoutSeconds = defaultTTSTimeoutSeconds
	}

	ca := &c.TTS.Cartesia
	ca.APIKey = strings.TrimSpace(ca.APIKey)
	if ca.APIKey == "" {
		if value, ok := os.LookupEnv("CARTESIA_API_KEY"); ok {
			ca.APIKey = strings.TrimSpace(value)
		}
	}
	ca.BaseURL = strings.TrimSpace(ca.BaseURL)
	if ca.BaseURL == "" {
		ca.BaseURL = defaultCartesiaBaseURL
	}
	if ca.ModelID == "" {
		ca.ModelID = defaultCartesiaModel
	}
	if ca.TimeoutSeconds <= 0 {
		ca.TimeoutSeconds = defaultTTSTimeoutSeconds
	}

	if c.TTS.ChunkSize <= 0 {
		c.TTS.ChunkSize = defaultTTSChunkSize
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.BaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.BaseURL), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = c.Storage.BaseURL
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.APIKey = strings.TrimSpace(c.Storage.APIKey)
	if c.Storage.APIKey == "" {
		if value, ok := os.LookupEnv("CHORUS_STORAGE_API_KEY"); ok {
			c.Storage.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Storage.TimeoutSeconds <= 0 {
		c.Storage.TimeoutSeconds = defaultStorageTimeout
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Translation.SourceLanguage))
	if c.Translation.SourceLanguage == "" {
		c.Translation.SourceLanguage = defaultSourceLanguage
	}
	if len(c.Translation.SupportedLanguages) == 0 {
		c.Translation.SupportedLanguages = append([]string(nil), defaultSupportedLanguages...)
	} else {
		langs := make([]string, 0, len(c.Translation.SupportedLanguages))
		seen := make(map[string]struct{}, len(c.Translation.SupportedLanguages))
		for _, lang := range c.Translation.SupportedLanguages {
			normalized := strings.ToLower(strings.TrimSpace(lang))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			langs = append(langs, normalized)
		}
		if len(langs) == 0 {
			langs = append([]string(nil), defaultSupportedLanguages...)
		}
		c.Translation.SupportedLanguages = langs
	}
	if c.Translation.CacheTTLDays <= 0 {
		c.Translation.CacheTTLDays = defaultCacheTTLDays
	}
	if c.Translation.BatchSize <= 0 {
		c.Translation.BatchSize = defaultBatchSize
	}
	if c.Translation.BatchPauseMillis < 0 {
		c.Translation.BatchPauseMillis = defaultBatchPauseMillis
	}
	if c.Translation.MaxOutputRatio <= 0 {
		c.Translation.MaxOutputRatio = defaultMaxOutputRatio
	}
}

func (c *Config) normalizeContentSync() {
	c.ContentSync.BaseURL = strings.TrimRight(strings.TrimSpace(c.ContentSync.BaseURL), "/")
	c.ContentSync.APIKey = strings.TrimSpace(c.ContentSync.APIKey)
	if c.ContentSync.APIKey == "" {
		if value, ok := os.LookupEnv("CHORUS_CONTENT_API_KEY"); ok {
			c.ContentSync.APIKey = strings.TrimSpace(value)
		}
	}
	if c.ContentSync.TimeoutSeconds <= 0 {
		c.ContentSync.TimeoutSeconds = defaultStorageTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.LanguageConcurrency <= 0 {
		c.Workflow.LanguageConcurrency = defaultLanguageConcurrency
	}
	if c.Subtitles.SecondsPerCue <= 0 {
		c.Subtitles.SecondsPerCue = defaultSecondsPerCue
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
