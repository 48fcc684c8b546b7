// Package llm wraps a consumed LLMClient with tier resolution, rate
// limiting, retries, and timeouts (§4.5).
package llm

import (
	"context"
	"errors"
	"time"
)

// Tier selects which configured model a Gateway call targets.
type Tier int

const (
	// FAST is used for per-commit classification (Tier 1).
	FAST Tier = iota
	// BALANCED is used for per-day synthesis (Tier 2).
	BALANCED
	// QUALITY is used for weekly narration (Tier 3).
	QUALITY
)

// String renders the tier name used in configuration keys and metrics labels.
func (t Tier) String() string {
	switch t {
	case FAST:
		return "fast"
	case BALANCED:
		return "balanced"
	case QUALITY:
		return "quality"
	default:
		return "unknown"
	}
}

// Sentinel errors an LLMClient implementation distinguishes (§6).
var (
	// ErrTransient covers network failures, 5xx responses, and unexpected
	// statuses — retried by the Gateway. Rate-limit rejections use
	// ErrRateLimited instead.
	ErrTransient = errors.New("llm: transient failure")
	// ErrRateLimited is a Transient variant carrying an optional server-advised
	// retry delay.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrInvalidRequest is a 4xx-class failure (excluding 429); not retried.
	ErrInvalidRequest = errors.New("llm: invalid request")
	// ErrAuth is an authentication/authorization failure; not retried.
	ErrAuth = errors.New("llm: authentication failure")
	// ErrTimeout is a per-call timeout; retried like a transient failure.
	ErrTimeout = errors.New("llm: call timed out")
	// ErrCanceled reports context cancellation; never retried.
	ErrCanceled = errors.New("llm: call canceled")
)

// RateLimitedError wraps ErrRateLimited with the server-advised delay before
// the next attempt, when one was provided.
type RateLimitedError struct {
	RetryAfter time.Duration // zero means "no advice given"
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return "llm: rate limited, retry after " + e.RetryAfter.String()
	}

	return "llm: rate limited"
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// Client is the external LLM service boundary (§6): it accepts a rendered
// prompt and returns raw text for the caller to decode. Implementations
// distinguish failure classes via the sentinel errors above.
type Client interface {
	Generate(ctx context.Context, model, prompt string, maxOutputTokens int, temperature float64) (string, error)
}

// isRetryable reports whether err should be retried by the Gateway.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrAuth), errors.Is(err, ErrCanceled):
		return false
	case errors.Is(err, ErrTransient), errors.Is(err, ErrRateLimited), errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}
