package translator

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultProvider hosts the Helsinki-NLP Marian models.
const DefaultProvider = "huggingface"

const defaultTimeout = 120 * time.Second

// Providers lists the backend names NewBackend accepts.
func Providers() []string {
	return []string{"huggingface", "ollama", "openai", "google"}
}

// NewBackend constructs the backend named by cfg.Provider.
func NewBackend(cfg BackendConfig, logger *zap.Logger) (Backend, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = DefaultProvider
	}

	switch provider {
	case "huggingface":
		return NewHuggingFaceService(cfg.APIKey, cfg.BaseURL, cfg.HubURL, timeout, logger), nil
	case "ollama":
		return NewOllamaService(cfg.BaseURL, timeout, logger), nil
	case "openai":
		return NewOpenAIService(cfg.APIKey, cfg.BaseURL, logger), nil
	case "google":
		return NewGoogleService(cfg.Credentials, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (available: %s)", cfg.Provider, strings.Join(Providers(), ", "))
	}
}
