package session

import (
	"context"
	"log/slog"
	"time"
)

// CleanupJob periodically deletes stale session snapshots.
type CleanupJob struct {
	service   Service
	retention time.Duration
	interval  time.Duration
}

// NewCleanupJob creates a cleanup job. retentionDays bounds how long an idle
// session survives.
func NewCleanupJob(service Service, retentionDays int) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &CleanupJob{
		service:   service,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  time.Hour,
	}
}

// Run blocks until ctx is cancelled, sweeping on each tick.
func (j *CleanupJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *CleanupJob) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.service.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("session cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("session cleanup removed stale sessions", "count", deleted)
	}
}
