package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chorus/internal/config"
)

const userAgent = "Chorus-Go/0.1.0"

// Service delivers job lifecycle notifications.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobID int64, languages int) error
	NotifyJobPartial(ctx context.Context, jobID int64, completed, failed int) error
	NotifyJobFailed(ctx context.Context, jobID int64, reason string) error
	NotifyError(ctx context.Context, err error, where string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// Without a topic, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID int64, languages int) error {
	if !n.cfg.JobCompleted {
		return nil
	}
	return n.send(ctx, payload{
		title:   "Chorus - Job Complete",
		message: fmt.Sprintf("Job %d narrated in %d language(s)", jobID, languages),
		tags:    []string{"chorus", "job", "completed"},
	})
}

func (n *ntfyService) NotifyJobPartial(ctx context.Context, jobID int64, completed, failed int) error {
	if !n.cfg.PartialSuccess {
		return nil
	}
	return n.send(ctx, payload{
		title:    "Chorus - Partial Success",
		message:  fmt.Sprintf("Job %d finished with %d completed, %d failed language(s)", jobID, completed, failed),
		tags:     []string{"chorus", "job", "partial"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID int64, reason string) error {
	if !n.cfg.JobFailed {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "all languages failed"
	}
	return n.send(ctx, payload{
		title:    "Chorus - Job Failed",
		message:  fmt.Sprintf("Job %d failed: %s", jobID, reason),
		tags:     []string{"chorus", "job", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, where string) error {
	return n.send(ctx, payload{
		title:    "Chorus - Error",
		message:  fmt.Sprintf("Error with %s: %v", where, err),
		tags:     []string{"chorus", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Chorus - Test",
		message: "Notifications are working",
		tags:    []string{"chorus", "test"},
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Title", data.title)
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, int64, int) error   { return nil }
func (noopService) NotifyJobPartial(context.Context, int64, int, int) error { return nil }
func (noopService) NotifyJobFailed(context.Context, int64, string) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error       { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
