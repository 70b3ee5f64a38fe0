package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config bounds one retried operation: total attempts and the backoff
// window between them.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig matches the page-fetch policy: 3 attempts, 2s base delay.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// ShouldRetry decides whether an error is transient. Returning false stops
// the loop immediately and surfaces the error as-is.
type ShouldRetry func(error) bool

// Do runs op with exponential backoff (delay doubling between attempts).
// A nil shouldRetry treats every error as transient.
func Do(ctx context.Context, cfg Config, name string, op func() error, shouldRetry ShouldRetry) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	b.Multiplier = 2
	b.Reset()

	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1)), ctx)

	err := backoff.Retry(func() error {
		opErr := op()
		if opErr == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(opErr) {
			return backoff.Permanent(opErr)
		}
		return opErr
	}, bo)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}
