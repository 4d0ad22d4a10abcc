package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/plugin/ai"
	"github.com/eduloop/eduloop/plugin/ai/timeout"
)

// VideoAgent submits video generation tasks and polls them to completion.
// Submission happens once; status checks run on a fixed interval until a
// terminal status or the overall job budget is exceeded.
type VideoAgent struct {
	video        ai.VideoService
	metrics      *Metrics
	pollInterval time.Duration
	jobBudget    time.Duration
}

// NewVideoAgent creates a video agent. metrics may be nil.
func NewVideoAgent(video ai.VideoService, metrics *Metrics) *VideoAgent {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &VideoAgent{
		video:        video,
		metrics:      metrics,
		pollInterval: timeout.VideoPollInterval,
		jobBudget:    timeout.VideoJobBudget,
	}
}

// Submit starts a video generation task and returns its ID for polling.
func (va *VideoAgent) Submit(ctx context.Context, prompt string, durationSec int) (string, error) {
	start := time.Now()
	taskID, err := CallWithTimeout(ctx, "video_submit", timeout.VideoSubmitTimeout, func(ctx context.Context) (string, error) {
		return va.video.Submit(ctx, prompt, durationSec)
	})
	va.metrics.Record("video_submit", time.Since(start), err)
	return taskID, err
}

// Status fetches the task's current status once. Exposed so callers can
// surface intermediate "processing" to the user instead of blocking.
func (va *VideoAgent) Status(ctx context.Context, taskID string) (*ai.VideoTask, error) {
	start := time.Now()
	task, err := CallWithTimeout(ctx, "video_poll", timeout.VideoPollTimeout, func(ctx context.Context) (*ai.VideoTask, error) {
		return va.video.Query(ctx, taskID)
	})
	va.metrics.Record("video_poll", time.Since(start), err)
	return task, err
}

// Await polls until the task reaches a terminal status or the job budget
// runs out. On budget exhaustion the last known status is surfaced inside
// the ErrJobTimeout wrap.
func (va *VideoAgent) Await(ctx context.Context, taskID string) (*ai.VideoTask, error) {
	deadline := time.Now().Add(va.jobBudget)
	ticker := time.NewTicker(va.pollInterval)
	defer ticker.Stop()

	lastStatus := ai.VideoStatusProcessing
	for {
		task, err := va.Status(ctx, taskID)
		if err != nil {
			// A single failed poll is not terminal; the next tick retries.
			slog.Warn("video status poll failed", "task", taskID, "error", err)
		} else {
			lastStatus = task.Status
			switch task.Status {
			case ai.VideoStatusSuccess:
				return task, nil
			case ai.VideoStatusFailure:
				return task, errors.New("video generation failed upstream")
			}
		}

		if time.Now().After(deadline) {
			return nil, errors.Wrapf(ErrJobTimeout, "video task %s still %s after %s", taskID, lastStatus, va.jobBudget)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
