package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) *RetryConfig {
	return DefaultRetryConfig().
		WithMaxAttempts(attempts).
		WithInitialInterval(time.Millisecond).
		WithMaxInterval(5 * time.Millisecond)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		if calls < 3 {
			return testError
		}
		return nil
	}, fastRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return testError
	}, fastRetry(3))

	assert.ErrorIs(t, err, testError)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return Permanent(testError)
	}, fastRetry(5))

	assert.Equal(t, testError, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsPermanent(err))
	assert.Nil(t, Permanent(nil))
}

func TestRetry_RetryableFilter(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	cfg := fastRetry(5).WithRetryableErrors(func(err error) bool { return !errors.Is(err, fatal) })

	err := Retry(func() error {
		calls++
		return fatal
	}, cfg)

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryContext_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig().WithMaxAttempts(5).WithInitialInterval(time.Hour)

	calls := 0
	time.AfterFunc(20*time.Millisecond, cancel)
	err := RetryContext(ctx, func(context.Context) error {
		calls++
		return testError
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryContext_NilConfig(t *testing.T) {
	calls := 0
	err := RetryContext(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithCircuitBreaker_StopsWhenOpen(t *testing.T) {
	cb := New(&Config{MaxFailures: 2, Timeout: time.Minute})
	calls := 0

	err := RetryWithCircuitBreaker(context.Background(), cb, func(context.Context) error {
		calls++
		return testError
	}, fastRetry(10))

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
	assert.True(t, cb.IsOpen())
}

func TestRetryWithCircuitBreaker_NilBreaker(t *testing.T) {
	calls := 0
	err := RetryWithCircuitBreaker(context.Background(), nil, func(context.Context) error {
		calls++
		if calls == 1 {
			return testError
		}
		return nil
	}, fastRetry(3))

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
