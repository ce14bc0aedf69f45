package providers

import (
	"fmt"
	"os"

	"github.com/notelab/sidechat/internal/chat"
	"github.com/notelab/sidechat/internal/config"
)

// NewClient creates a chat.CompletionClient for the configured provider.
// Config values take precedence; environment variables fill the gaps so a
// .env file is enough to get going.
func NewClient(cfg *config.Config) (chat.CompletionClient, string, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = os.Getenv("SIDECHAT_PROVIDER")
	}
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		apiKey := firstOf(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY not set")
		}

		model := firstOf(cfg.Model, os.Getenv("OPENAI_MODEL"))
		if model == "" {
			model = "gpt-4o-mini"
		}

		baseURL := firstOf(cfg.BaseURL, os.Getenv("OPENAI_BASE_URL"))

		return NewOpenAIClient(apiKey, baseURL), model, nil

	case "anthropic":
		apiKey := firstOf(cfg.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
		if apiKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}

		model := firstOf(cfg.Model, os.Getenv("ANTHROPIC_MODEL"))
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}

		return NewAnthropicClient(apiKey), model, nil

	case "ollama":
		baseURL := firstOf(cfg.BaseURL, os.Getenv("OLLAMA_BASE_URL"))
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}

		model := firstOf(cfg.Model, os.Getenv("OLLAMA_MODEL"))
		if model == "" {
			model = "llama3.1"
		}

		return NewOllamaClient(baseURL), model, nil

	default:
		return nil, "", fmt.Errorf("unknown provider: %s (supported: openai, anthropic, ollama)", provider)
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
