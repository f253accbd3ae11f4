package main

import (
	"encoding/json"
	"strings"
	"testing"

	"chorus/internal/daemon"
)

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	var status daemon.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("daemon reported as not running")
	}
	if status.QueueDBPath == "" {
		t.Fatal("status missing queue database path")
	}
}

func TestStatusCommandTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "Daemon: running") {
		t.Fatalf("output %q missing daemon state", out)
	}
	if !strings.Contains(out, "pending") {
		t.Fatalf("output %q missing queue table", out)
	}
}
