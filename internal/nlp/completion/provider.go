// Package completion adapts external language-model APIs to a single
// prompt-in, text-out contract. Providers never return Go errors: every
// outcome is a Result whose Failure carries a category the caller can log
// and count before falling back.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Category classifies a failed completion call.
type Category string

const (
	CategoryNotConfigured Category = "not_configured"
	CategoryCircuitOpen   Category = "circuit_open"
	CategoryRateLimited   Category = "rate_limited"
	CategoryTimeout       Category = "timeout"
	CategoryCanceled      Category = "canceled"
	CategoryTransport     Category = "transport"
	CategoryAPI           Category = "api"
	CategoryEmpty         Category = "empty_response"
)

// ErrNotConfigured is the Failure cause for the disabled provider.
var ErrNotConfigured = errors.New("completion provider not configured")

// Failure describes why a completion produced no usable text.
type Failure struct {
	Category Category
	Err      error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Category)
	}
	return fmt.Sprintf("%s: %v", f.Category, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is either non-empty Text or a Failure.
type Result struct {
	Text    string
	Failure *Failure
}

// OK reports whether the result carries usable text.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Success builds a Result from provider output. Blank output is a failure.
func Success(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Failed(CategoryEmpty, errors.New("provider returned no text"))
	}
	return Result{Text: text}
}

// Failed builds a failure Result.
func Failed(category Category, err error) Result {
	return Result{Failure: &Failure{Category: category, Err: err}}
}

// FromContext maps a done context to the matching failure. ok is false
// while ctx is still live.
func FromContext(ctx context.Context) (r Result, ok bool) {
	switch err := ctx.Err(); {
	case errors.Is(err, context.DeadlineExceeded):
		return Failed(CategoryTimeout, err), true
	case errors.Is(err, context.Canceled):
		return Failed(CategoryCanceled, err), true
	}
	return Result{}, false
}

// Provider completes a single prompt.
type Provider interface {
	Name() string
	// Available reports whether Complete can currently reach the backend.
	Available() bool
	Complete(ctx context.Context, prompt string) Result
}

// Disabled is the provider used when no API key is configured.
type Disabled struct{}

func (Disabled) Name() string    { return "disabled" }
func (Disabled) Available() bool { return false }

func (Disabled) Complete(context.Context, string) Result {
	return Failed(CategoryNotConfigured, ErrNotConfigured)
}
