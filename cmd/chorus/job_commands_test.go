package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"chorus/internal/api"
)

func TestJobLifecycleViaCLI(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "job", "create",
		"--text", "Hello there. General greeting.",
		"--languages", "en,es",
		"--json")
	if err != nil {
		t.Fatalf("job create error = %v", err)
	}
	var created api.JobView
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode created job: %v\noutput: %s", err, out)
	}
	if created.ID == 0 {
		t.Fatal("created job has no id")
	}
	if created.Status != "pending" {
		t.Fatalf("Status = %q, want pending", created.Status)
	}

	id := fmt.Sprintf("%d", created.ID)

	out, err = env.run(t, "job", "list", "--status", "pending", "--json")
	if err != nil {
		t.Fatalf("job list error = %v", err)
	}
	var list api.JobList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode job list: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != created.ID {
		t.Fatalf("list = %+v, want single job %d", list.Jobs, created.ID)
	}

	out, err = env.run(t, "job", "show", id)
	if err != nil {
		t.Fatalf("job show error = %v", err)
	}
	if !strings.Contains(out, "en, es") {
		t.Fatalf("show output %q missing languages", out)
	}

	if _, err := env.run(t, "job", "cancel", id); err != nil {
		t.Fatalf("job cancel error = %v", err)
	}

	_, err = env.run(t, "job", "cancel", id)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != api.CodeJobCannotCancel {
		t.Fatalf("second cancel error = %v, want %s", err, api.CodeJobCannotCancel)
	}

	if _, err := env.run(t, "job", "delete", id); err != nil {
		t.Fatalf("job delete error = %v", err)
	}

	_, err = env.run(t, "job", "show", id)
	if !errors.As(err, &apiErr) || apiErr.Code != api.CodeJobNotFound {
		t.Fatalf("show after delete error = %v, want %s", err, api.CodeJobNotFound)
	}
}

func TestJobCreateRejectsUnknownLanguage(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "job", "create", "--text", "Hi there.", "--languages", "tlh")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != api.CodeValidationError {
		t.Fatalf("create error = %v, want %s", err, api.CodeValidationError)
	}
}

func TestJobCommandsRejectBadID(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, args := range [][]string{
		{"job", "show", "abc"},
		{"job", "process", "0"},
		{"job", "delete", "00"},
	} {
		if _, err := env.run(t, args...); err == nil {
			t.Fatalf("%v succeeded, want invalid id error", args)
		}
	}
}
