// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "drift-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"NOT_FOUND: job 42", false},
		{"invalid argument", false},
	}
	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(errors.New(tt.err)))
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  string
		want apperrors.ErrorCode
	}{
		{"deadline exceeded", apperrors.ErrCodeTimeout},
		{"job not found", apperrors.ErrCodeResourceNotFound},
		{"process already exists", apperrors.ErrCodeBusinessRuleViolation},
		{"connection refused", apperrors.ErrCodeExternalService},
		{"boom", apperrors.ErrCodeExternalService},
	}
	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.CodeOf(MapError(errors.New(tt.err), "complete", 0)))
		})
	}
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := Retry(context.Background(), fastRetry, "topology", func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("unavailable")
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), fastRetry, "topology", func(context.Context) (int, error) {
			calls++
			return 0, errors.New("invalid argument")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, apperrors.ErrCodeExternalService, apperrors.CodeOf(err))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), fastRetry, "topology", func(context.Context) (int, error) {
			calls++
			return 0, errors.New("deadline exceeded")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, apperrors.ErrCodeTimeout, apperrors.CodeOf(err))
	})

	t.Run("cancelled context stops backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
		_, err := Retry(ctx, slow, "topology", func(context.Context) (int, error) {
			cancel()
			return 0, errors.New("connection reset")
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
