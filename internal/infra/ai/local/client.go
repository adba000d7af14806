// Package local talks to a self-hosted text generation endpoint (Ollama,
// vLLM or any wrapper) that accepts {"prompt": "..."} and answers with JSON.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/extract"
)

// ProviderName identifies the local endpoint backend.
const ProviderName = "local"

// RequestTimeout bounds a single call to the endpoint.
const RequestTimeout = 60 * time.Second

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 8 << 20

// resultKeys are tried in order; the first usable value wins.
var resultKeys = []string{"result", "text", "output"}

type Client struct {
	url        string
	name       string
	httpClient *http.Client
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// NewClient fails with ai.ErrConfiguration when no endpoint URL is set.
// name is the configured provider identifier (local, ollama, vllm).
func NewClient(url, name string) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ai.NewConfigurationError("LOCAL_LLM_URL not set for %s provider", name)
	}
	if name == "" {
		name = ProviderName
	}
	return &Client{
		url:        url,
		name:       name,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}, nil
}

func (c *Client) Provider() string { return c.name }

// Analyze issues one POST. Transport failures, non-2xx statuses and bodies
// that are not a JSON object are returned as ai.ErrBackend.
func (c *Client) Analyze(ctx context.Context, prompt string) (ai.GenerationResult, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return ai.GenerationResult{}, ai.WrapBackend(err, c.name, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return ai.GenerationResult{}, ai.WrapBackend(err, c.name, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ai.GenerationResult{}, ai.WrapBackend(err, c.name, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ai.GenerationResult{}, ai.WrapBackend(err, c.name, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ai.GenerationResult{}, ai.NewBackendError("%s: inference returned status %d: %s",
			c.name, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var reply map[string]any
	if err := json.Unmarshal(data, &reply); err != nil || reply == nil {
		return ai.GenerationResult{}, ai.NewBackendError("%s: inference returned malformed body: %s",
			c.name, truncate(string(data), 200))
	}

	text, parsed, err := pickResult(reply)
	if err != nil {
		return ai.GenerationResult{}, ai.WrapBackend(err, c.name, "failed to read result")
	}
	if parsed == nil {
		parsed = extract.Structure(text)
	}

	return ai.GenerationResult{
		Text:        text,
		Parsed:      parsed,
		ProviderRaw: json.RawMessage(data),
		Provider:    c.name,
	}, nil
}

// pickResult returns the reply text and, when the endpoint already answered
// with an object under a result key, that object as the parsed structure.
// Without a usable key the whole body serializes as the text.
func pickResult(reply map[string]any) (string, map[string]any, error) {
	for _, key := range resultKeys {
		switch v := reply[key].(type) {
		case string:
			if v != "" {
				return v, nil, nil
			}
		case map[string]any:
			b, err := json.Marshal(v)
			if err != nil {
				return "", nil, err
			}
			return string(b), v, nil
		}
	}
	b, err := json.Marshal(reply)
	if err != nil {
		return "", nil, fmt.Errorf("failed to serialize reply: %w", err)
	}
	return string(b), nil, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
