package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"chorus/internal/config"
	"chorus/internal/daemon"
	"chorus/internal/logging"
	"chorus/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	configPath string
}

// setupCLITestEnv starts a daemon bound to an ephemeral port and writes a
// config file the CLI can load to reach it.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	cfg.LLM.APIKey = "llm-test-key"
	cfg.TTS.ElevenLabs.APIKey = "el-test-key"
	cfg.TTS.Cartesia.APIKey = "ca-test-key"
	cfg.Storage.BaseURL = "https://storage.example"
	cfg.Storage.Bucket = "audio"
	// Keep the poll loop out of the way so CLI assertions see stable state.
	cfg.Workflow.QueuePollInterval = 3600

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start() error = %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})

	cfg.Paths.APIBind = d.APIAddr()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{cfg: cfg, daemon: d, configPath: configPath}
}

// runCommand executes the CLI with args and returns combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"--config", env.configPath}, args...)
	return runCommand(t, full...)
}
