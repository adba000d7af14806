package openai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/extract"
)

// ProviderName identifies the hosted OpenAI backend.
const ProviderName = "openai"

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 800
	defaultTimeout   = 120 * time.Second
)

// Config holds the hosted provider settings.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string // optional, for OpenAI-compatible gateways
	MaxTokens   int
	Temperature float32
	JSONMode    bool
	Timeout     time.Duration
}

type Client struct {
	*openai.Client
	cfg Config
}

// NewClient fails with ai.ErrConfiguration when no API key is set.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ai.NewConfigurationError("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{Client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

func (c *Client) Provider() string { return ProviderName }

// Analyze sends the prompt as a single user message. Provider failures are
// returned as ai.ErrBackend and never retried.
func (c *Client) Analyze(ctx context.Context, prompt string) (ai.GenerationResult, error) {
	model := c.cfg.Model
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens and reject temperature.
	if isReasoningModel(model) {
		req.MaxCompletionTokens = c.cfg.MaxTokens
	} else {
		req.MaxTokens = c.cfg.MaxTokens
		req.Temperature = temperature(c.cfg.Temperature)
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return ai.GenerationResult{}, ai.WrapBackend(err, ProviderName, "failed to create chat completion")
	}
	if len(resp.Choices) == 0 {
		return ai.GenerationResult{}, ai.NewBackendError("openai returned no choices")
	}

	text := resp.Choices[0].Message.Content
	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}
	return ai.GenerationResult{
		Text:        text,
		Parsed:      extract.Structure(text),
		ProviderRaw: raw,
		Provider:    ProviderName,
		Model:       model,
	}, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// temperature keeps an explicit zero on the wire; go-openai drops 0 via omitempty.
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
