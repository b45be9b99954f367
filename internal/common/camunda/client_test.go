package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"swedana-forms/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	result, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return int64(42), nil
	}, "create-instance")

	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("rpc error: code = NotFound desc = process not found")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeWorkflowEngine, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestExecuteWithRetry_ExhaustedRetries(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("context deadline exceeded")
	}, "topology")

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, 3, calls)
	assert.Contains(t, stdErr.Details, "after 2 attempts")
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	_, err := executeWithRetry(ctx, slow, func(context.Context) (interface{}, error) {
		return nil, stderrors.New("unavailable")
	}, "create-instance")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("connection reset by peer")))
	assert.True(t, isRetryableZeebeError(stderrors.New("RESOURCE_EXHAUSTED: backpressure")))
	assert.False(t, isRetryableZeebeError(stderrors.New("invalid argument")))
}
