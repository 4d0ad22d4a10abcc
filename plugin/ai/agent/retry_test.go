package agent

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallWithTimeoutSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := CallWithTimeout(context.Background(), "test", time.Second, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestCallWithTimeoutRetriesTransientOnce(t *testing.T) {
	calls := 0
	got, err := CallWithTimeout(context.Background(), "test", time.Second, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection reset by peer")
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 2, calls)
}

func TestCallWithTimeoutSurfacesSecondFailure(t *testing.T) {
	calls := 0
	_, err := CallWithTimeout(context.Background(), "test", time.Second, func(ctx context.Context) (string, error) {
		calls++
		return "", ErrServiceUnavailable
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "a second failure is surfaced, never retried again")
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.True(t, classified.IsTransient())
}

func TestCallWithTimeoutNoRetryOnPermanent(t *testing.T) {
	calls := 0
	_, err := CallWithTimeout(context.Background(), "test", time.Second, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.Wrap(ErrInvalidArgument, "bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCallWithTimeoutEnforcesDeadline(t *testing.T) {
	start := time.Now()
	_, err := CallWithTimeout(context.Background(), "test", 20*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.Error(t, err)
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.True(t, classified.IsTransient(), "a timeout is transient")
	assert.Less(t, time.Since(start), 10*time.Second, "the loop never hangs")
}
