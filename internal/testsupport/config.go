package testsupport

import (
	"path/filepath"
	"testing"

	"chorus/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLanguages overrides the supported target languages.
func WithLanguages(langs ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Translation.SupportedLanguages = langs
	}
}

// WithSubtitles toggles caption generation.
func WithSubtitles(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Subtitles.Enabled = enabled
	}
}
