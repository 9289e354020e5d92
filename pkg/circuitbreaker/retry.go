package circuitbreaker

import (
	"context"
	"errors"
	"time"
)

// RetryConfig represents the configuration for retry logic
type RetryConfig struct {
	// MaxAttempts includes the first call (default: 3)
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// RetryableErrors decides which errors are retried; nil retries all
	// except those wrapped by Permanent
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}
}

func (rc *RetryConfig) WithMaxAttempts(maxAttempts int) *RetryConfig {
	rc.MaxAttempts = maxAttempts
	return rc
}

func (rc *RetryConfig) WithInitialInterval(interval time.Duration) *RetryConfig {
	rc.InitialInterval = interval
	return rc
}

func (rc *RetryConfig) WithMaxInterval(interval time.Duration) *RetryConfig {
	rc.MaxInterval = interval
	return rc
}

func (rc *RetryConfig) WithRetryableErrors(fn func(error) bool) *RetryConfig {
	rc.RetryableErrors = fn
	return rc
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func (rc *RetryConfig) retryable(err error) bool {
	if IsPermanent(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return rc.RetryableErrors == nil || rc.RetryableErrors(err)
}

// Retry executes fn with exponential backoff
func Retry(fn func() error, config *RetryConfig) error {
	return RetryContext(context.Background(), func(context.Context) error { return fn() }, config)
}

// RetryContext stops early when ctx is done; the returned error is the last
// error of fn, unwrapped from Permanent
func RetryContext(ctx context.Context, fn func(ctx context.Context) error, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	multiplier := config.Multiplier
	if multiplier < 1 {
		multiplier = 2.0
	}

	interval := config.InitialInterval
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !config.retryable(lastErr) || attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		interval = time.Duration(float64(interval) * multiplier)
		if config.MaxInterval > 0 && interval > config.MaxInterval {
			interval = config.MaxInterval
		}
	}
	var p *permanentError
	if errors.As(lastErr, &p) {
		return p.err
	}
	return lastErr
}

// RetryWithCircuitBreaker retries fn through cb. An open circuit ends the
// retries at once.
func RetryWithCircuitBreaker(ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) error, config *RetryConfig) error {
	if cb == nil {
		return RetryContext(ctx, fn, config)
	}
	return RetryContext(ctx, func(ctx context.Context) error {
		err := cb.ExecuteContext(ctx, fn)
		if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
			return Permanent(err)
		}
		return err
	}, config)
}
