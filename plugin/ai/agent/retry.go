package agent

import (
	"context"
	"log/slog"
	"time"
)

// CallWithTimeout runs fn under the given timeout, retrying once on a
// transient failure. Short calls get no backoff beyond the classified
// error's suggested delay. A failure on the second attempt is returned
// classified, never retried again.
func CallWithTimeout[T any](ctx context.Context, name string, limit time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	result, err := runOnce(ctx, limit, fn)
	if err == nil {
		return result, nil
	}

	classified := ClassifyError(err)
	if !classified.IsTransient() {
		return zero, classified
	}

	slog.Warn("transient failure, retrying once", "call", name, "error", err)
	if classified.RetryAfter > 0 {
		select {
		case <-ctx.Done():
			return zero, ClassifyError(ctx.Err())
		case <-time.After(classified.RetryAfter):
		}
	}

	result, err = runOnce(ctx, limit, fn)
	if err != nil {
		slog.Error("call failed after retry", "call", name, "error", err)
		return zero, ClassifyError(err)
	}
	return result, nil
}

func runOnce[T any](ctx context.Context, limit time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	return fn(callCtx)
}
