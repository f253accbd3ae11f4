package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chorus/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	retryMaxAttempts   = 3
	retryBaseDelay     = 1 * time.Second
)

// Config captures the runtime settings for the object storage service.
type Config struct {
	BaseURL        string
	PublicBaseURL  string
	Bucket         string
	APIKey         string
	TimeoutSeconds int
}

// Client uploads finished audio and caption files to an S3-compatible
// object store and issues public URLs for them.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a blob store client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	client.cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	client.cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if client.cfg.PublicBaseURL == "" {
		client.cfg.PublicBaseURL = client.cfg.BaseURL
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Upload stores the payload under the given object key and returns the
// public URL for it. Transient failures (429, 5xx) are retried with
// increasing delay.
func (c *Client) Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "blobstore", "upload", "object key required", nil)
	}
	if len(payload) == 0 {
		return "", services.Wrap(services.ErrValidation, "blobstore", "upload", "empty payload", nil)
	}

	endpoint := c.objectURL(c.cfg.BaseURL, key)
	var lastErr error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		retryable, err := c.putOnce(ctx, endpoint, payload, contentType)
		if err == nil {
			return c.objectURL(c.cfg.PublicBaseURL, key), nil
		}
		lastErr = err
		if !retryable || attempt == retryMaxAttempts {
			break
		}
		if err := c.sleep(ctx, retryBaseDelay*time.Duration(attempt)); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// Delete removes an object by key. Missing objects are not an error so
// cleanup stays idempotent.
func (c *Client) Delete(ctx context.Context, key string) error {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(c.cfg.BaseURL, key), nil)
	if err != nil {
		return fmt.Errorf("blobstore: new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrStorage, "blobstore", "delete", "request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode != http.StatusNotFound {
		return services.Wrap(services.ErrStorage, "blobstore", "delete",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}

// KeyFromURL recovers the object key from a previously issued public URL.
// Returns false when the URL does not belong to this store.
func (c *Client) KeyFromURL(fileURL string) (string, bool) {
	prefix := c.objectURL(c.cfg.PublicBaseURL, "")
	if !strings.HasPrefix(fileURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(fileURL, prefix)
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", false
	}
	return key, true
}

func (c *Client) putOnce(ctx context.Context, endpoint string, payload []byte, contentType string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("blobstore: new request: %w", err)
	}
	c.authorize(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, services.Wrap(services.ErrStorage, "blobstore", "upload", "request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return true, services.Wrap(services.ErrStorage, "blobstore", "upload",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	default:
		return false, services.Wrap(services.ErrStorage, "blobstore", "upload",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func (c *Client) objectURL(base, key string) string {
	parts := []string{base, c.cfg.Bucket}
	if key != "" {
		parts = append(parts, key)
	}
	escaped := make([]string, 0, len(parts))
	for i, part := range parts {
		if i == 0 {
			escaped = append(escaped, part)
			continue
		}
		escaped = append(escaped, url.PathEscape(part))
	}
	return strings.Join(escaped, "/")
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
