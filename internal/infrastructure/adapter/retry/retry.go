// Package retry re-runs operations that failed with a transient error, with
// exponential backoff and jitter. Used for database connects and remote store
// reads; writes that are not idempotent must not go through it.
package retry

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// Config holds configuration for retry operations
type Config struct {
	MaxAttempts   int
	RetryInterval time.Duration
	MaxInterval   time.Duration
	JitterFactor  float64 // 0.0-1.0
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		RetryInterval: 100 * time.Millisecond,
		MaxInterval:   2 * time.Second,
		JitterFactor:  0.2,
	}
}

// Classifier reports whether an error is worth another attempt
type Classifier func(err error) bool

// Do runs operation until it succeeds, fails with a non-transient error, the
// attempts run out or ctx is done
func Do(ctx context.Context, config Config, operation func(ctx context.Context) error, isTransient Classifier, logger coreport.Logger) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if isTransient == nil {
		isTransient = IsTransientError
	}

	var err error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err = operation(ctx); err == nil {
			return nil
		}
		if !isTransient(err) || attempt == config.MaxAttempts-1 {
			break
		}

		backoff := Backoff(attempt, config)
		logger.Warn("Transient error, retrying operation", map[string]any{
			"attempt":      attempt + 1,
			"max_attempts": config.MaxAttempts,
			"error":        err.Error(),
			"retry_after":  backoff.String(),
		})

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			logger.Warn("Retry operation canceled by context", map[string]any{
				"attempts": attempt + 1,
				"error":    ctx.Err().Error(),
			})
			return ctx.Err()
		}
	}

	if isTransient(err) {
		logger.Error("All retry attempts failed", map[string]any{
			"max_attempts": config.MaxAttempts,
			"error":        err.Error(),
		})
	}
	return err
}

// Backoff computes the wait before the next attempt: exponential growth capped
// at MaxInterval, plus up to JitterFactor of random jitter
func Backoff(attempt int, config Config) time.Duration {
	backoff := config.RetryInterval << uint(attempt)
	if backoff > config.MaxInterval || backoff <= 0 {
		backoff = config.MaxInterval
	}

	if config.JitterFactor > 0 {
		backoff += time.Duration(float64(backoff) * config.JitterFactor * rand.Float64())
	}

	return backoff
}

// IsTransientError matches connection-level and lock-contention failures
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "deadlock") ||
		strings.Contains(errMsg, "serialization") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "too many connections") ||
		strings.Contains(errMsg, "server closed") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "lock timeout") ||
		strings.Contains(errMsg, "eof")
}
