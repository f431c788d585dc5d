package completion

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited spaces calls to at most rpm per minute. Callers whose context
// cannot wait long enough for a token fail fast as rate limited.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps next. rpm <= 0 disables limiting.
func NewRateLimited(next Provider, rpm int) Provider {
	if rpm <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

func (r *RateLimited) Name() string    { return r.next.Name() }
func (r *RateLimited) Available() bool { return r.next.Available() }

func (r *RateLimited) Complete(ctx context.Context, prompt string) Result {
	if err := r.limiter.Wait(ctx); err != nil {
		if res, done := FromContext(ctx); done {
			return res
		}
		return Failed(CategoryRateLimited, err)
	}
	return r.next.Complete(ctx, prompt)
}
