package completion

import (
	"context"
	"errors"
	"log/slog"

	"personas/pkg/platform/circuit"
)

var errCircuitOpen = errors.New("completion circuit open")

// Guarded short-circuits calls while the breaker is open. Rate limiting and
// caller cancellation are not counted as backend failures.
type Guarded struct {
	next    Provider
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next Provider, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) Name() string { return g.next.Name() }

// Available is false while the backend is unconfigured or the circuit is open.
func (g *Guarded) Available() bool {
	return g.next.Available() && !g.breaker.IsOpen()
}

func (g *Guarded) Complete(ctx context.Context, prompt string) Result {
	if !g.next.Available() {
		return Failed(CategoryNotConfigured, ErrNotConfigured)
	}
	if !g.breaker.Allow() {
		return Failed(CategoryCircuitOpen, errCircuitOpen)
	}

	res := g.next.Complete(ctx, prompt)
	if res.OK() {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "completion circuit closed", "provider", g.next.Name())
		}
		return res
	}

	switch res.Failure.Category {
	case CategoryRateLimited, CategoryCanceled:
		return res
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.WarnContext(ctx, "completion circuit opened",
			"provider", g.next.Name(),
			"category", res.Failure.Category,
		)
	}
	return res
}
