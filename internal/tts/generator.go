package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"chorus/internal/language"
	"chorus/internal/queue"
	"chorus/internal/services"
	"chorus/internal/services/cartesia"
	"chorus/internal/services/elevenlabs"
	"chorus/internal/textchunk"
	"chorus/internal/voice"
)

// Speaker is one synthesis backend. The provider clients are adapted onto
// this so the generator never branches on provider type.
type Speaker interface {
	Name() string
	Speak(ctx context.Context, text, voiceID, lang string, speed float64) ([]byte, error)
}

// Uploader publishes finished audio and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error)
}

// ElevenLabsSpeaker adapts the ElevenLabs client onto Speaker.
type ElevenLabsSpeaker struct {
	Client *elevenlabs.Client
}

func (s ElevenLabsSpeaker) Name() string { return s.Client.Name() }

func (s ElevenLabsSpeaker) Speak(ctx context.Context, text, voiceID, _ string, speed float64) ([]byte, error) {
	return s.Client.Synthesize(ctx, elevenlabs.Request{Text: text, VoiceID: voiceID, Speed: speed})
}

// CartesiaSpeaker adapts the Cartesia client onto Speaker.
type CartesiaSpeaker struct {
	Client *cartesia.Client
}

func (s CartesiaSpeaker) Name() string { return s.Client.Name() }

func (s CartesiaSpeaker) Speak(ctx context.Context, text, voiceID, lang string, speed float64) ([]byte, error) {
	return s.Client.Synthesize(ctx, cartesia.Request{Text: text, VoiceID: voiceID, Language: lang, Speed: speed})
}

// Result is one finished language narration.
type Result struct {
	AudioURL  string
	Provider  string
	SizeBytes int
	Chunks    int
}

// Generator turns translated text into uploaded audio for one language.
type Generator struct {
	speakers  map[voice.Provider]Speaker
	uploader  Uploader
	logger    *slog.Logger
	chunkSize int
	now       func() time.Time
}

// Option customizes the generator.
type Option func(*Generator)

// WithClock overrides the timestamp source used in object keys.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator wires the generator with one Speaker per provider.
func NewGenerator(speakers map[voice.Provider]Speaker, uploader Uploader, chunkSize int, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if chunkSize <= 0 {
		chunkSize = 4000
	}
	g := &Generator{
		speakers:  speakers,
		uploader:  uploader,
		logger:    logger,
		chunkSize: chunkSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate normalizes and chunks the text, synthesizes every chunk through
// the language's provider, concatenates the audio and uploads it. The
// returned URL is the public location of the finished file.
func (g *Generator) Generate(ctx context.Context, text, lang string, cfg queue.VoiceConfig) (Result, error) {
	selection, err := voice.Select(lang, cfg)
	if err != nil {
		return Result{}, err
	}
	speaker, ok := g.speakers[selection.Provider]
	if !ok {
		return Result{}, services.Wrap(services.ErrConfiguration, "tts", "generate",
			fmt.Sprintf("no speaker registered for provider %s", selection.Provider), nil)
	}

	code := language.Normalize(lang)
	normalized := textchunk.NormalizeForSpeech(text, language.UsesLatinScript(code))
	if normalized == "" {
		return Result{}, services.Wrap(services.ErrValidation, "tts", "generate", "text is empty after normalization", nil)
	}

	chunks := textchunk.Chunk(normalized, g.chunkSize)
	var audio bytes.Buffer
	for i, chunk := range chunks {
		segment, err := speaker.Speak(ctx, chunk, selection.VoiceID, code, selection.Speed)
		if err != nil {
			return Result{}, services.Wrap(services.ErrProvider, "tts", "generate",
				fmt.Sprintf("synthesize chunk %d/%d for %s", i+1, len(chunks), code), err)
		}
		audio.Write(segment)
	}

	key := fmt.Sprintf("%s-%d-%s.mp3", speaker.Name(), g.now().UnixMilli(), code)
	url, err := g.uploader.Upload(ctx, key, audio.Bytes(), "audio/mpeg")
	if err != nil {
		return Result{}, services.Wrap(services.ErrStorage, "tts", "generate",
			fmt.Sprintf("upload audio for %s", code), err)
	}

	g.logger.Info("audio generated",
		slog.String("language", code),
		slog.String("provider", speaker.Name()),
		slog.Int("chunks", len(chunks)),
		slog.Int("bytes", audio.Len()))

	return Result{
		AudioURL:  url,
		Provider:  speaker.Name(),
		SizeBytes: audio.Len(),
		Chunks:    len(chunks),
	}, nil
}
