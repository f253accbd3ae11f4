package elevenlabs

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
)

// Config captures the runtime settings for the ElevenLabs speech endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	Stability      float64
	Similarity     float64
	TimeoutSeconds int
}

// Request describes one synthesis call.
type Request struct {
	Text    string
	VoiceID string
	Speed   float64
}

// Client calls the ElevenLabs text-to-speech API.
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

// NewClient constructs an ElevenLabs client using the supplied configuration.
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
		client.cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies the provider in storage keys and logs.
func (c *Client) Name() string { return "elevenlabs" }

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// Synthesize converts text into MP3 audio bytes using the configured voice.
// HTTP 429 responses are retried with increasing delay; any other non-2xx
// response fails immediately.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "elevenlabs", "synthesize", "text required", nil)
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, services.Wrap(services.ErrValidation, "elevenlabs", "synthesize", "voice id required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "elevenlabs", "synthesize", "api key required", nil)
	}

	payload := synthesisRequest{
		Text:    req.Text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.Similarity,
			Speed:           req.Speed,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.cfg.BaseURL, req.VoiceID)

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
		return nil, false, fmt.Errorf("elevenlabs: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, services.Wrap(services.ErrProvider, "elevenlabs", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, services.Wrap(services.ErrProvider, "elevenlabs", "synthesize",
			fmt.Sprintf("rate limited (http %d)", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, services.Wrap(services.ErrProvider, "elevenlabs", "synthesize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, services.Wrap(services.ErrProvider, "elevenlabs", "synthesize", "read audio", err)
	}
	if len(audio) == 0 {
		return nil, false, services.Wrap(services.ErrProvider, "elevenlabs", "synthesize", "empty audio response", nil)
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
		return errors.New("elevenlabs: api key required")
	}
	return nil
}
