package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chorus/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the runtime settings for the content record service.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// MediaAsset is the durable artifact record the content service keeps for one
// finished audio file.
type MediaAsset struct {
	ID               string             `json:"id,omitempty"`
	Title            string             `json:"title"`
	FileURL          string             `json:"fileUrl"`
	FileType         string             `json:"fileType"`
	MimeType         string             `json:"mimeType"`
	FileSizeBytes    int64              `json:"fileSizeBytes"`
	RelatedContentID string             `json:"relatedContentId,omitempty"`
	Generation       GenerationMetadata `json:"generationMetadata"`
	Status           string             `json:"status"`
}

// GenerationMetadata records how an asset came to exist.
type GenerationMetadata struct {
	Language    string    `json:"language"`
	GeneratedAt time.Time `json:"generatedAt"`
	Source      string    `json:"source"`
}

// Client talks to the content record service that receives finished assets.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs a content store client using the supplied configuration.
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
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FindAsset looks up an existing asset by file URL and language. Returns nil
// without error when no asset matches, which keeps asset creation idempotent.
func (c *Client) FindAsset(ctx context.Context, fileURL, language string) (*MediaAsset, error) {
	query := url.Values{}
	query.Set("fileUrl", fileURL)
	query.Set("language", language)
	endpoint := fmt.Sprintf("%s/api/media-assets?%s", c.cfg.BaseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("contentstore: new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "contentstore", "find asset", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.statusError("find asset", resp)
	}

	var payload struct {
		Assets []MediaAsset `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("contentstore: decode assets: %w", err)
	}
	if len(payload.Assets) == 0 {
		return nil, nil
	}
	return &payload.Assets[0], nil
}

// CreateAsset registers a new media asset and returns it with its assigned id.
func (c *Client) CreateAsset(ctx context.Context, asset MediaAsset) (*MediaAsset, error) {
	encoded, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("contentstore: encode asset: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/api/media-assets"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("contentstore: new request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "contentstore", "create asset", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.statusError("create asset", resp)
	}

	var created MediaAsset
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("contentstore: decode created asset: %w", err)
	}
	return &created, nil
}

// UpdateContentAudio patches the content record's per-language audio asset
// map with newly completed languages.
func (c *Client) UpdateContentAudio(ctx context.Context, contentID string, assetIDs map[string]string) error {
	if len(assetIDs) == 0 {
		return nil
	}
	payload := struct {
		AudioAssets map[string]string `json:"audioAssets"`
	}{AudioAssets: assetIDs}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("contentstore: encode content update: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/content/%s/audio", c.cfg.BaseURL, url.PathEscape(contentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("contentstore: new request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrStorage, "contentstore", "update content", "request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return c.statusError("update content", resp)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func (c *Client) statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return services.Wrap(services.ErrStorage, "contentstore", op,
		fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
}
