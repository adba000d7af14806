package ai

import (
	"context"
	"encoding/json"
)

// GenerationResult is the output of one backend call. Parsed stays nil when
// no structured record could be extracted from Text.
type GenerationResult struct {
	Text        string          `json:"text"`
	Parsed      map[string]any  `json:"parsed"`
	ProviderRaw json.RawMessage `json:"provider_raw,omitempty"`
	Provider    string          `json:"provider"`
	Model       string          `json:"model,omitempty"`
}

// Client produces a GenerationResult from a prompt.
type Client interface {
	Analyze(ctx context.Context, prompt string) (GenerationResult, error)
	// Provider names the backend, used in logs and metrics.
	Provider() string
}
