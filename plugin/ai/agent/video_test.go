package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduloop/eduloop/plugin/ai"
)

type fakeVideoService struct {
	submitErr error
	statuses  []ai.VideoStatus
	polls     int
}

func (f *fakeVideoService) Submit(ctx context.Context, prompt string, durationSec int) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "task-1", nil
}

func (f *fakeVideoService) Query(ctx context.Context, taskID string) (*ai.VideoTask, error) {
	status := f.statuses[len(f.statuses)-1]
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	task := &ai.VideoTask{TaskID: taskID, Status: status}
	if status == ai.VideoStatusSuccess {
		task.DownloadURL = "https://example.com/video.mp4"
	}
	return task, nil
}

func newTestVideoAgent(svc ai.VideoService) *VideoAgent {
	va := NewVideoAgent(svc, nil)
	va.pollInterval = 5 * time.Millisecond
	va.jobBudget = 200 * time.Millisecond
	return va
}

func TestVideoAwaitPollsToSuccess(t *testing.T) {
	svc := &fakeVideoService{statuses: []ai.VideoStatus{
		ai.VideoStatusProcessing,
		ai.VideoStatusProcessing,
		ai.VideoStatusSuccess,
	}}
	va := newTestVideoAgent(svc)

	taskID, err := va.Submit(context.Background(), "animate the unit circle", 6)
	require.NoError(t, err)

	task, err := va.Await(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, ai.VideoStatusSuccess, task.Status)
	assert.NotEmpty(t, task.DownloadURL)
	assert.Equal(t, 3, svc.polls, "submit once, poll until terminal")
}

func TestVideoAwaitFailureIsTerminal(t *testing.T) {
	svc := &fakeVideoService{statuses: []ai.VideoStatus{ai.VideoStatusFailure}}
	va := newTestVideoAgent(svc)

	_, err := va.Await(context.Background(), "task-1")
	require.Error(t, err)
	assert.Equal(t, 1, svc.polls)
}

func TestVideoAwaitBudgetExceeded(t *testing.T) {
	svc := &fakeVideoService{statuses: []ai.VideoStatus{ai.VideoStatusProcessing}}
	va := newTestVideoAgent(svc)

	_, err := va.Await(context.Background(), "task-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobTimeout)
	assert.Contains(t, err.Error(), "processing", "last known status is surfaced")
}

func TestVideoAwaitRespectsCancellation(t *testing.T) {
	svc := &fakeVideoService{statuses: []ai.VideoStatus{ai.VideoStatusProcessing}}
	va := newTestVideoAgent(svc)
	va.jobBudget = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := va.Await(ctx, "task-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
