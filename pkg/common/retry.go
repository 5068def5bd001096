package common

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// RetryConfig bounds an exponential backoff retry loop.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig retries three times starting at half a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  time.Minute,
	}
}

// RetryWithBackoff runs operation until it succeeds, returns a permanent error
// (see backoff.Permanent), the retries are exhausted or ctx is done. onRetry,
// when set, is called with each failed attempt's error.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, operation func() error, onRetry func(err error)) error {
	expBackoff := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		expBackoff.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxElapsedTime > 0 {
		expBackoff.MaxElapsedTime = cfg.MaxElapsedTime
	}

	op := func() error {
		err := operation()
		if err != nil && onRetry != nil {
			onRetry(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(expBackoff, cfg.MaxRetries), ctx)
	return backoff.Retry(op, b)
}
