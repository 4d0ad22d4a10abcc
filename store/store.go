package store

import (
	"context"

	"github.com/eduloop/eduloop/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate ensures the schema exists. Fresh databases get the full schema;
// already-initialized databases are left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}
	return s.driver.ApplySchema(ctx)
}

func (s *Store) CreateChunk(ctx context.Context, create *Chunk) (*Chunk, error) {
	return s.driver.CreateChunk(ctx, create)
}

func (s *Store) ListChunks(ctx context.Context, find *FindChunk) ([]*Chunk, error) {
	return s.driver.ListChunks(ctx, find)
}

func (s *Store) DeleteChunk(ctx context.Context, delete *DeleteChunk) error {
	return s.driver.DeleteChunk(ctx, delete)
}

func (s *Store) UpdateChunkEmbedding(ctx context.Context, id int32, embedding []float32) error {
	return s.driver.UpdateChunkEmbedding(ctx, id, embedding)
}

func (s *Store) SearchChunksByVector(ctx context.Context, embedding []float32, docType ChunkDocType, limit int) ([]*Chunk, []float32, error) {
	return s.driver.SearchChunksByVector(ctx, embedding, docType, limit)
}

func (s *Store) UpsertSessionRecord(ctx context.Context, upsert *SessionRecord) (*SessionRecord, error) {
	return s.driver.UpsertSessionRecord(ctx, upsert)
}

func (s *Store) GetSessionRecord(ctx context.Context, uid string) (*SessionRecord, error) {
	return s.driver.GetSessionRecord(ctx, uid)
}

func (s *Store) ListSessionRecords(ctx context.Context, find *FindSessionRecord) ([]*SessionRecord, error) {
	return s.driver.ListSessionRecords(ctx, find)
}

func (s *Store) DeleteSessionRecords(ctx context.Context, delete *DeleteSessionRecord) (int64, error) {
	return s.driver.DeleteSessionRecords(ctx, delete)
}
