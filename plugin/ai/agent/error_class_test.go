package agent

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil-safe starved", errors.Wrap(ErrContentUnavailable, "no questions"), ErrorClassStarved},
		{"invalid transition", ErrInvalidTransition, ErrorClassPermanent},
		{"invalid argument", errors.Wrap(ErrInvalidArgument, "n must be >= 1"), ErrorClassPermanent},
		{"session not found", ErrSessionNotFound, ErrorClassPermanent},
		{"network sentinel", ErrNetworkError, ErrorClassTransient},
		{"service unavailable", ErrServiceUnavailable, ErrorClassTransient},
		{"deadline exceeded", context.DeadlineExceeded, ErrorClassTransient},
		{"connection refused", errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrorClassTransient},
		{"5xx upstream", errors.New("error, status code: 503, message: overloaded"), ErrorClassTransient},
		{"validation message", errors.New("invalid voice id"), ErrorClassPermanent},
		{"unknown defaults permanent", errors.New("something odd"), ErrorClassPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Class)
		})
	}
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	classified := ClassifyError(errors.Wrap(ErrContentUnavailable, "no questions for topic"))
	assert.ErrorIs(t, classified, ErrContentUnavailable)
	assert.Contains(t, classified.Error(), "starved")
}

func TestClassifyErrorNil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(ErrNetworkError))
	assert.False(t, ShouldRetry(ErrInvalidTransition))
	assert.Greater(t, GetRetryDelay(ErrNetworkError), time.Duration(0))
	assert.Equal(t, time.Duration(0), GetRetryDelay(ErrInvalidTransition))
}
