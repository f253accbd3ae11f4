package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chorus/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENROUTER_API_KEY", "test-llm-key")
	t.Setenv("ELEVENLABS_API_KEY", "test-eleven-key")
	t.Setenv("CARTESIA_API_KEY", "test-cartesia-key")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsUseEnvKeysAndExpandPaths(t *testing.T) {
	setRequiredEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load(writeConfig(t, `
[storage]
base_url = "https://storage.test"
bucket = "narration"
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "chorus", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7823" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "test-llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.TTS.ElevenLabs.APIKey != "test-eleven-key" {
		t.Fatalf("expected ElevenLabs key from env, got %q", cfg.TTS.ElevenLabs.APIKey)
	}
	if cfg.Translation.BatchSize != 5 {
		t.Fatalf("unexpected batch size: %d", cfg.Translation.BatchSize)
	}
	if !cfg.Subtitles.Enabled {
		t.Fatal("expected subtitles enabled by default")
	}
	if cfg.ContentSync.Enabled {
		t.Fatal("expected content sync disabled by default")
	}
}

func TestLoadRejectsMissingStorage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load(writeConfig(t, "[logging]\nlevel = \"debug\"\n"))
	if err == nil {
		t.Fatal("expected error for missing storage config")
	}
	if !strings.Contains(err.Error(), "storage.base_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsMissingLLMKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "x")
	t.Setenv("CARTESIA_API_KEY", "x")
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load(writeConfig(t, `
[storage]
base_url = "https://storage.test"
bucket = "narration"
`))
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm.api_key error, got %v", err)
	}
}

func TestNormalizeDeduplicatesLanguages(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, _, _, err := config.Load(writeConfig(t, `
[storage]
base_url = "https://storage.test"
bucket = "narration"

[translation]
supported_languages = ["EN", "es", " es ", "", "fr"]
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := []string{"en", "es", "fr"}
	if len(cfg.Translation.SupportedLanguages) != len(want) {
		t.Fatalf("unexpected languages: %v", cfg.Translation.SupportedLanguages)
	}
	for i, lang := range want {
		if cfg.Translation.SupportedLanguages[i] != lang {
			t.Fatalf("unexpected languages: %v", cfg.Translation.SupportedLanguages)
		}
	}
}

func TestValidateTTSRanges(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load(writeConfig(t, `
[storage]
base_url = "https://storage.test"
bucket = "narration"

[tts.elevenlabs]
stability = 1.5
`))
	if err == nil || !strings.Contains(err.Error(), "stability") {
		t.Fatalf("expected stability range error, got %v", err)
	}
}
