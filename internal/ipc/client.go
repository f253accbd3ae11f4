package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chorus/internal/api"
	"chorus/internal/config"
	"chorus/internal/daemon"
)

// Client talks to a running chorusd over its HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config) *Client {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	return &Client{
		baseURL:    "http://" + bind,
		token:      strings.TrimSpace(cfg.Paths.APIToken),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Status fetches the daemon runtime snapshot.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// ListJobs lists jobs with optional filters.
func (c *Client) ListJobs(ctx context.Context, req api.ListJobsRequest) (*api.JobList, error) {
	params := make([]string, 0, 4)
	if req.Status != "" {
		params = append(params, "status="+req.Status)
	}
	if req.ContentID != "" {
		params = append(params, "contentRecordId="+req.ContentID)
	}
	if req.Limit > 0 {
		params = append(params, "limit="+strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		params = append(params, "offset="+strconv.Itoa(req.Offset))
	}
	path := "/api/jobs"
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var list api.JobList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, id int64) (*api.JobView, error) {
	var view api.JobView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/jobs/%d", id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateJob submits a new narration job.
func (c *Client) CreateJob(ctx context.Context, req api.CreateJobRequest) (*api.JobView, error) {
	var view api.JobView
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateJob applies mutable field changes.
func (c *Client) UpdateJob(ctx context.Context, id int64, req api.UpdateJobRequest) (*api.JobView, error) {
	var view api.JobView
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/jobs/%d", id), req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteJob removes a job and its uploaded audio.
func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/jobs/%d", id), nil, nil)
}

// ProcessJob runs a job through the pipeline and returns the merged result.
func (c *Client) ProcessJob(ctx context.Context, id int64) (*api.JobView, error) {
	var view api.JobView
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/jobs/%d/process", id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CancelJob stops a pending or processing job.
func (c *Client) CancelJob(ctx context.Context, id int64) (*api.JobView, error) {
	var view api.JobView
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/jobs/%d/cancel", id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chorusd unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.APIError
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Code != "" {
			return &apiErr
		}
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
