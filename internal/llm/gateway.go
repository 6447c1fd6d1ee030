package llm

import (
	"fmt"

	"github.com/nikhilbhutani/audioweather/internal/config"
)

// NewProvider returns the backend named by cfg.Provider. Calls are made
// exactly once; there is no retry or fallback chaining.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.AnthropicKey), nil
	case "ollama":
		return NewOllamaProvider(cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("provider %q not supported", cfg.Provider)
	}
}

// SupportsModel reports whether model is one of the models p lists.
func SupportsModel(p Provider, model string) bool {
	for _, m := range p.Models() {
		if m == model {
			return true
		}
	}
	return false
}
