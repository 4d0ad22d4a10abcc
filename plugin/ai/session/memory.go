package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// memoryService keeps records in memory. Used in tests and when the server
// runs without a database.
type memoryService struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryService creates an in-memory session service.
func NewMemoryService() Service {
	return &memoryService{records: make(map[string]*Record)}
}

func (s *memoryService) Save(ctx context.Context, record *Record) error {
	if record.UID == "" {
		return errors.New("session uid is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	saved := *record
	saved.UpdatedAt = now
	if existing, ok := s.records[record.UID]; ok {
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.CreatedAt = now
	}
	s.records[record.UID] = &saved
	return nil
}

func (s *memoryService) Get(ctx context.Context, uid string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[uid]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *memoryService) List(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		copied := *record
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *memoryService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for uid, record := range s.records {
		if record.UpdatedAt.Before(cutoff) {
			delete(s.records, uid)
			count++
		}
	}
	return count, nil
}
