// Package resilience wraps outbound provider calls with retries, circuit breaking
// and client-side rate limiting.
package resilience

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/portalsearch/internal/domain"
)

// Config holds retry and breaker settings shared by all provider guards.
// Zero fields take the DefaultConfig value.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig fails fast: two short attempts per search, and a breaker that
// opens once half of ten calls failed.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:        2,
		RetryInitialBackoff:     100 * time.Millisecond,
		RetryMaxBackoff:         400 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func positive[T cmp.Ordered](v, def T) T {
	var zero T
	if v <= zero {
		return def
	}
	return v
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	c.RetryMaxAttempts = positive(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = positive(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(positive(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	c.BreakerMinRequests = positive(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = positive(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	c.BreakerHalfOpenMaxCalls = positive(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return c
}

// Limiter is a client-side token bucket. A nil Limiter never blocks.
type Limiter struct {
	l *rate.Limiter
}

// NewLimiter returns nil when rps is not positive.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{l: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or the context cannot afford to wait.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.l.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err() //nolint:wrapcheck // context error is returned as-is
		}
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return nil
}

// Guard binds an executor and a limiter to one provider.
type Guard struct {
	name     string
	exec     *Executor
	limiter  *Limiter
	classify ErrorClassifier
}

// Guard returns a guard for the named provider. The limiter may be nil.
func (e *Executor) Guard(name string, limiter *Limiter) *Guard {
	return &Guard{name: name, exec: e, limiter: limiter, classify: ClassifyHTTP}
}

// WithClassifier replaces the HTTP classifier.
func (g *Guard) WithClassifier(c ErrorClassifier) *Guard {
	cp := *g
	cp.classify = c
	return &cp
}

// Do runs fn with rate limiting on every attempt. A nil Guard calls fn directly.
func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	return g.exec.Execute(ctx, g.name, func(ctx context.Context) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	}, g.classify)
}
