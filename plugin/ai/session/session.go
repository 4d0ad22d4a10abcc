// Package session persists learning-session snapshots. The payload is an
// opaque JSON document owned by the caller; this package only tracks
// identity, lifecycle state, and timestamps.
package session

import (
	"context"
	"encoding/json"
	"time"
)

// Record is a persisted session snapshot.
type Record struct {
	UID       string
	State     string
	Topic     string
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Service defines session persistence operations.
type Service interface {
	// Save upserts a snapshot keyed by UID.
	Save(ctx context.Context, record *Record) error

	// Get returns the snapshot for UID, or nil when none exists.
	Get(ctx context.Context, uid string) (*Record, error)

	// List returns snapshots ordered by most recently updated first.
	List(ctx context.Context, limit int) ([]*Record, error)

	// DeleteOlderThan removes snapshots not updated since the cutoff and
	// returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
