package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"chorus/internal/api"
	"chorus/internal/config"
	"chorus/internal/logging"
)

func startTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Paths.APIToken = "secret"
	// Keep the poll loop out of the way so HTTP assertions see stable state.
	cfg.Workflow.QueuePollInterval = 3600

	d, err := New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})
	return d, "http://" + d.server.Addr()
}

func doRequest(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestAPIRequiresToken(t *testing.T) {
	_, base := startTestDaemon(t)

	resp, _ := doRequest(t, http.MethodGet, base+"/api/jobs", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, base+"/api/jobs", "wrong", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d with wrong token, want 401", resp.StatusCode)
	}
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	_, base := startTestDaemon(t)

	resp, body := doRequest(t, http.MethodPost, base+"/api/jobs", "secret", api.CreateJobRequest{
		SourceText: "Hello. World.",
		Languages:  []string{"en", "es"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", resp.StatusCode, body)
	}
	var created api.JobView
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created job: %v", err)
	}
	if created.ID == 0 || created.Status != "pending" {
		t.Fatalf("created = %+v", created)
	}

	resp, body = doRequest(t, http.MethodGet, fmt.Sprintf("%s/api/jobs/%d", base, created.ID), "secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, http.MethodGet, base+"/api/jobs?status=pending", "secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list api.JobList
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 1 {
		t.Fatalf("list = %d jobs", len(list.Jobs))
	}

	resp, body = doRequest(t, http.MethodPost, fmt.Sprintf("%s/api/jobs/%d/cancel", base, created.ID), "secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, body = %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, http.MethodPost, fmt.Sprintf("%s/api/jobs/%d/cancel", base, created.ID), "secret", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", resp.StatusCode)
	}
	var apiErr api.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if apiErr.Code != api.CodeJobCannotCancel {
		t.Errorf("Code = %s, want JOB_CANNOT_CANCEL", apiErr.Code)
	}
	if apiErr.Timestamp.IsZero() {
		t.Error("error envelope missing timestamp")
	}

	resp, _ = doRequest(t, http.MethodDelete, fmt.Sprintf("%s/api/jobs/%d", base, created.ID), "secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodGet, fmt.Sprintf("%s/api/jobs/%d", base, created.ID), "secret", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, base := startTestDaemon(t)

	resp, body := doRequest(t, http.MethodGet, base+"/api/status", "secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Error("Running = false")
	}
	if status.QueueDBPath == "" {
		t.Error("QueueDBPath empty")
	}
}
