package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped with retry
// and request-logging middleware. events may be nil to skip the audit log.
func NewProvider(ctx context.Context, cfg Config, log *zap.Logger, events store.EventRepo) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Middleware order: caller -> retry -> logging -> base, so each retry
	// attempt is logged individually.
	logged := WithLogging(base, log, events)
	return WithRetry(logged, cfg.Retry), nil
}
