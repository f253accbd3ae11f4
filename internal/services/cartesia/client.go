package cartesia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chorus/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	retryMaxAttempts   = 3
	retryBaseDelay     = 2 * time.Second
	apiVersion         = "2025-04-16"
)

// Config captures the runtime settings for the Cartesia speech endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	TimeoutSeconds int
}

// Request describes one synthesis call.
type Request struct {
	Text     string
	VoiceID  string
	Language string
	Speed    float64
}

// Client calls the Cartesia text-to-speech API, which narrates every
// non-English language in the pipeline.
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

// NewClient constructs a Cartesia client using the supplied configuration.
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
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.cartesia.ai"
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies the provider in storage keys and logs.
func (c *Client) Name() string { return "cartesia" }

type synthesisRequest struct {
	ModelID    string       `json:"model_id"`
	Transcript string       `json:"transcript"`
	Voice      voiceRef     `json:"voice"`
	Language   string       `json:"language"`
	Output     outputFormat `json:"output_format"`
	Speed      float64      `json:"speed,omitempty"`
}

type voiceRef struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container string `json:"container"`
	BitRate   int    `json:"bit_rate"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize converts text into MP3 audio bytes using the configured voice.
// HTTP 429 responses are retried with increasing delay; any other non-2xx
// response fails immediately.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "cartesia", "synthesize", "text required", nil)
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, services.Wrap(services.ErrValidation, "cartesia", "synthesize", "voice id required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cartesia", "synthesize", "api key required", nil)
	}

	payload := synthesisRequest{
		ModelID:    c.cfg.ModelID,
		Transcript: req.Text,
		Voice:      voiceRef{Mode: "id", ID: req.VoiceID},
		Language:   req.Language,
		Output:     outputFormat{Container: "mp3", BitRate: 128000, SampleRate: 44100},
		Speed:      req.Speed,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cartesia: encode body: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/tts/bytes"

	var lastErr error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		audio, retryable, err := c.sendOnce(ctx, endpoint, encoded)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !retryable || attempt == retryMaxAttempts {
			break
		}
		if err := c.sleep(ctx, retryBaseDelay*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) sendOnce(ctx context.Context, endpoint string, body []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("cartesia: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Cartesia-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, services.Wrap(services.ErrProvider, "cartesia", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, services.Wrap(services.ErrProvider, "cartesia", "synthesize",
			fmt.Sprintf("rate limited (http %d)", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, services.Wrap(services.ErrProvider, "cartesia", "synthesize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, services.Wrap(services.ErrProvider, "cartesia", "synthesize", "read audio", err)
	}
	if len(audio) == 0 {
		return nil, false, services.Wrap(services.ErrProvider, "cartesia", "synthesize", "empty audio response", nil)
	}
	return audio, false, nil
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

// HealthCheck verifies the API key is present without issuing a network call.
func (c *Client) HealthCheck(context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("cartesia: api key required")
	}
	return nil
}
