package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avikbasu/mathsprint/internal/store"
)

// LoggingProvider is a decorator that logs every collaborator request and
// appends it to the event store for later auditing via `mathsprint stats`.
type LoggingProvider struct {
	inner  Provider
	log    *zap.Logger
	events store.EventRepo
}

// WithLogging wraps a Provider with request logging. log must be non-nil;
// events may be nil to skip the audit log.
func WithLogging(p Provider, log *zap.Logger, events store.EventRepo) Provider {
	return &LoggingProvider{inner: p, log: log, events: events}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	fields := []zap.Field{
		zap.String("purpose", purpose),
		zap.String("model", l.inner.ModelID()),
		zap.Duration("latency", latency),
	}
	if resp != nil {
		fields = append(fields,
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens),
		)
	}
	if err != nil {
		l.log.Warn("collaborator request failed", append(fields, zap.Error(err))...)
	} else {
		l.log.Debug("collaborator request", fields...)
	}

	if l.events != nil {
		ev := store.LLMRequestEvent{
			Model:     l.inner.ModelID(),
			Purpose:   purpose,
			LatencyMs: latency.Milliseconds(),
			Success:   err == nil,
		}
		if resp != nil {
			ev.Model = resp.Model
			ev.InputTokens = resp.Usage.InputTokens
			ev.OutputTokens = resp.Usage.OutputTokens
		}
		if err != nil {
			ev.ErrorMessage = err.Error()
		}
		// Audit failures never fail the request.
		if logErr := l.events.AppendLLMRequest(ctx, ev); logErr != nil {
			l.log.Warn("failed to append request event", zap.Error(logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
