package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
)

// Client calls the gateway HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	Code   int    `json:"-"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Code, e.Detail)
}

// NewClient reads the base URL from the api-url flag or DUMPCTL_API_URL.
func NewClient() *Client {
	baseURL := viper.GetString("api-url")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return newClient(baseURL)
}

func newClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// generation can take minutes on slow backends
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Submit posts a raw dump payload. The body is sent verbatim.
func (c *Client) Submit(ctx context.Context, payload []byte) (*dump.Analysis, error) {
	var a dump.Analysis
	if err := c.do(ctx, http.MethodPost, "/api/dumps", payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Get(ctx context.Context, dumpID string) (*dump.Analysis, error) {
	var a dump.Analysis
	if err := c.do(ctx, http.MethodGet, "/api/dumps/"+url.PathEscape(dumpID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) List(ctx context.Context, limit int) ([]dump.RecentAnalysis, error) {
	path := "/api/dumps"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var items []dump.RecentAnalysis
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Health returns the /health or /ready body as a generic map.
func (c *Client) Health(ctx context.Context, ready bool) (map[string]any, error) {
	path := "/health"
	if ready {
		path = "/ready"
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, result any) error {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Code: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
