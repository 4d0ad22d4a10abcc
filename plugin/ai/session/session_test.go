package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryServiceSaveAndGet(t *testing.T) {
	s := NewMemoryService()
	ctx := context.Background()

	got, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = s.Save(ctx, &Record{
		UID:     "s1",
		State:   "TEACHING",
		Topic:   "Fractions",
		Payload: json.RawMessage(`{"mastery":0.4}`),
	})
	require.NoError(t, err)

	got, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "TEACHING", got.State)
	assert.Equal(t, "Fractions", got.Topic)
	assert.JSONEq(t, `{"mastery":0.4}`, string(got.Payload))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestMemoryServiceSaveRequiresUID(t *testing.T) {
	s := NewMemoryService()
	err := s.Save(context.Background(), &Record{State: "TEACHING"})
	assert.Error(t, err)
}

func TestMemoryServiceUpsertKeepsCreatedAt(t *testing.T) {
	s := NewMemoryService()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Record{UID: "s1", State: "TEACHING"}))
	first, err := s.Get(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, &Record{UID: "s1", State: "ASSESSMENT"}))
	second, err := s.Get(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "ASSESSMENT", second.State)
}

func TestMemoryServiceListOrdersByUpdated(t *testing.T) {
	s := NewMemoryService()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Record{UID: "old", State: "COMPLETED"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Save(ctx, &Record{UID: "new", State: "TEACHING"}))

	records, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].UID)

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryServiceDeleteOlderThan(t *testing.T) {
	s := NewMemoryService()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Record{UID: "stale"}))
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	require.NoError(t, s.Save(ctx, &Record{UID: "fresh"}))

	deleted, err := s.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := s.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCleanupJobSweep(t *testing.T) {
	s := NewMemoryService()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Record{UID: "s1"}))

	job := NewCleanupJob(s, 30)
	job.sweep(ctx)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, got, "recently updated session must survive the sweep")
}
