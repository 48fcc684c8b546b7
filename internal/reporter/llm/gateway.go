package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// ModelConfig names the model and output cap for a single tier.
type ModelConfig struct {
	Model           string
	MaxOutputTokens int
}

// RetryConfig controls the Gateway's exponential-backoff-with-jitter policy
// (§4.5): max attempts R, base delay D, multiplier 2, jitter ±25%.
type RetryConfig struct {
	MaxAttempts  uint
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultRetryConfig matches the spec's defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// Config wires the per-tier model map, per-tier rate limits, retry policy,
// and per-call timeout into a Gateway.
type Config struct {
	Models      map[Tier]ModelConfig
	RatePerMin  map[Tier]float64 // tokens/min; burst = floor(rate/60)+1
	Temperature float64
	Retry       RetryConfig
	CallTimeout time.Duration
}

// Gateway wraps a Client with tier resolution, rate limiting, retries, and
// per-call timeouts (§4.5).
type Gateway struct {
	client   Client
	cfg      Config
	limiters map[Tier]*rate.Limiter
}

// NewGateway constructs a Gateway. A zero-valued rate for a tier disables
// limiting for that tier.
func NewGateway(client Client, cfg Config) *Gateway {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 300 * time.Second
	}

	limiters := make(map[Tier]*rate.Limiter, len(cfg.RatePerMin))

	for tier, perMin := range cfg.RatePerMin {
		if perMin <= 0 {
			continue
		}

		burst := int(perMin/60) + 1
		limiters[tier] = rate.NewLimiter(rate.Limit(perMin/60), burst)
	}

	return &Gateway{client: client, cfg: cfg, limiters: limiters}
}

// Generate resolves tier to a model, waits for a rate-bucket token, and
// invokes the underlying Client with retries for transient failures.
func (g *Gateway) Generate(ctx context.Context, tier Tier, prompt string) (string, error) {
	model, ok := g.cfg.Models[tier]
	if !ok {
		return "", fmt.Errorf("llm: no model configured for tier %s: %w", tier, ErrInvalidRequest)
	}

	if limiter, ok := g.limiters[tier]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate wait: %w", ErrCanceled)
		}
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = g.cfg.Retry.BaseDelay
	backOff.MaxInterval = g.cfg.Retry.MaxDelay
	backOff.Multiplier = 2
	backOff.RandomizationFactor = g.cfg.Retry.JitterFactor

	operation := func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()

		out, err := g.client.Generate(callCtx, model.Model, prompt, model.MaxOutputTokens, g.cfg.Temperature)
		if err == nil {
			return out, nil
		}

		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}

		if !isRetryable(err) {
			return "", backoff.Permanent(err)
		}

		return "", err
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backOff),
		backoff.WithMaxTries(g.cfg.Retry.MaxAttempts),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("llm: %w", ErrCanceled)
		}

		return "", err
	}

	return result, nil
}
