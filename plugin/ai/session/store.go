package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/store"
)

// storeService persists records through the chunk/session store.
type storeService struct {
	store *store.Store
}

// NewStoreService creates a store-backed session service.
func NewStoreService(s *store.Store) Service {
	return &storeService{store: s}
}

func (s *storeService) Save(ctx context.Context, record *Record) error {
	if record.UID == "" {
		return errors.New("session uid is required")
	}
	_, err := s.store.UpsertSessionRecord(ctx, &store.SessionRecord{
		UID:       record.UID,
		UpdatedTs: time.Now().Unix(),
		State:     record.State,
		Topic:     record.Topic,
		Payload:   record.Payload,
	})
	return errors.Wrap(err, "failed to upsert session record")
}

func (s *storeService) Get(ctx context.Context, uid string) (*Record, error) {
	row, err := s.store.GetSessionRecord(ctx, uid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session record")
	}
	if row == nil {
		return nil, nil
	}
	return fromStoreRecord(row), nil
}

func (s *storeService) List(ctx context.Context, limit int) ([]*Record, error) {
	find := &store.FindSessionRecord{}
	if limit > 0 {
		find.Limit = &limit
	}
	rows, err := s.store.ListSessionRecords(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list session records")
	}
	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromStoreRecord(row))
	}
	return records, nil
}

func (s *storeService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffTs := cutoff.Unix()
	affected, err := s.store.DeleteSessionRecords(ctx, &store.DeleteSessionRecord{UpdatedBefore: &cutoffTs})
	return affected, errors.Wrap(err, "failed to delete session records")
}

func fromStoreRecord(row *store.SessionRecord) *Record {
	return &Record{
		UID:       row.UID,
		State:     row.State,
		Topic:     row.Topic,
		Payload:   row.Payload,
		CreatedAt: time.Unix(row.CreatedTs, 0),
		UpdatedAt: time.Unix(row.UpdatedTs, 0),
	}
}
