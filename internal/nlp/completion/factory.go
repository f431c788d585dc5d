package completion

import (
	"fmt"
	"log/slog"

	"personas/internal/platform/config"
	"personas/pkg/platform/circuit"
)

// New builds the configured provider stack: backend, rate limiter, breaker.
// A missing API key yields Disabled rather than an error.
func New(cfg config.Completion, logger *slog.Logger) (Provider, error) {
	var backend Provider
	switch cfg.Provider {
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			return Disabled{}, nil
		}
		backend = NewGemini(cfg.GeminiAPIKey, cfg.Model)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Disabled{}, nil
		}
		backend = NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, "")
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}

	limited := NewRateLimited(backend, cfg.RPM)
	return NewGuarded(limited, circuit.New("completion:"+backend.Name()), logger), nil
}
