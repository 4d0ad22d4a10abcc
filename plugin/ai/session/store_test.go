package session

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduloop/eduloop/internal/profile"
	"github.com/eduloop/eduloop/store"
	"github.com/eduloop/eduloop/store/db/sqlite"
)

func newSQLiteService(t *testing.T) Service {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "eduloop_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	s := store.New(driver, p)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return NewStoreService(s)
}

func TestStoreServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t)

	payload, err := json.Marshal(map[string]string{"topic": "Calculus"})
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, &Record{
		UID:     "sess-1",
		State:   "TEACHING",
		Topic:   "Calculus",
		Payload: payload,
	}))

	got, err := svc.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess-1", got.UID)
	assert.Equal(t, "TEACHING", got.State)
	assert.Equal(t, "Calculus", got.Topic)
	assert.JSONEq(t, string(payload), string(got.Payload))
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStoreServiceGetMissingReturnsNil(t *testing.T) {
	svc := newSQLiteService(t)

	got, err := svc.Get(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreServiceSaveRequiresUID(t *testing.T) {
	svc := newSQLiteService(t)
	assert.Error(t, svc.Save(context.Background(), &Record{State: "TEACHING"}))
}

func TestStoreServiceUpsertKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t)

	require.NoError(t, svc.Save(ctx, &Record{UID: "sess-1", State: "TEACHING", Payload: []byte("{}")}))
	require.NoError(t, svc.Save(ctx, &Record{UID: "sess-1", State: "ASSESSMENT", Payload: []byte("{}")}))

	records, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ASSESSMENT", records[0].State)
}

func TestStoreServiceListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t)

	for _, uid := range []string{"sess-1", "sess-2", "sess-3"} {
		require.NoError(t, svc.Save(ctx, &Record{UID: uid, State: "TEACHING", Payload: []byte("{}")}))
	}

	records, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "sess-3", records[0].UID)
	assert.Equal(t, "sess-1", records[2].UID)

	limited, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStoreServiceDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t)

	require.NoError(t, svc.Save(ctx, &Record{UID: "sess-1", State: "TEACHING", Payload: []byte("{}")}))
	require.NoError(t, svc.Save(ctx, &Record{UID: "sess-2", State: "TEACHING", Payload: []byte("{}")}))

	// past cutoff: nothing is old enough
	deleted, err := svc.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = svc.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	got, err := svc.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
