package appinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client fetches application info from a mydms backend.
type Client struct {
	baseURL string
	client  *http.Client
	header  http.Header
}

// NewClient creates a Client for the backend rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		header: make(http.Header),
	}
}

// WithHeader returns a copy of c that sends the given header on every request.
func (c *Client) WithHeader(key, value string) *Client {
	cp := *c
	cp.header = c.header.Clone()
	cp.header.Set(key, value)
	return &cp
}

// GetApplicationInfo requests /api/v1/appinfo from the backend.
func (c *Client) GetApplicationInfo(ctx context.Context) (AppInfo, error) {
	var a AppInfo

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/appinfo", nil)
	if err != nil {
		return a, fmt.Errorf("creating appinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return a, fmt.Errorf("requesting appinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return a, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return a, fmt.Errorf("decoding appinfo: %w", err)
	}
	return a, nil
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("appinfo request failed with status %d", e.Code)
	}
	return fmt.Sprintf("appinfo request failed with status %d: %s", e.Code, e.Body)
}
