// Package retry provides a bounded retry combinator with backoff,
// specialized for rate-limit errors.
package retry

import (
	"context"
	"time"

	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/clock"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 2 * time.Second
)

// Config holds retry behavior.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Clock        clock.Clock
}

// Option configures retry behavior.
type Option func(*Config)

// WithMaxAttempts sets the attempt ceiling.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithInitialDelay sets the delay between attempts.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithClock sets the time source used for delays.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

// Do runs op up to MaxAttempts times, returning the first success or the
// last error. Rate-limit errors back off exponentially (initial * 2^attempt);
// any other error waits the fixed initial delay. Delays respect ctx.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := Config{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		Clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.InitialDelay
		if apperror.IsCode(err, apperror.CodeRateLimitExceeded) {
			delay = cfg.InitialDelay << attempt
		}
		if err := cfg.Clock.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}
