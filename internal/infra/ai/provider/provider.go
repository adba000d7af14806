// Package provider selects the generation backend from its configured
// identifier. Selection happens once, at startup.
package provider

import (
	"strings"

	"github.com/bryanwahyu/dump-analyzer/internal/config"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/local"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/openai"
)

// Provider identifiers accepted in llm.provider / LLM_PROVIDER.
const (
	OpenAI = "openai"
	Local  = "local"
	Ollama = "ollama"
	VLLM   = "vllm"
)

// New builds the configured client. Unknown identifiers and missing
// credentials fail here with ai.ErrConfiguration, never on first call.
func New(cfg config.LLMConfig) (ai.Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch name {
	case OpenAI:
		c, err := openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			JSONMode:    cfg.OpenAI.JSONMode,
			Timeout:     cfg.OpenAI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case Local, Ollama, VLLM:
		c, err := local.NewClient(cfg.Local.URL, name)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, ai.NewConfigurationError("unknown LLM_PROVIDER: %q", cfg.Provider)
	}
}
