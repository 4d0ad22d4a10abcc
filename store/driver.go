package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	ApplySchema(ctx context.Context) error

	// Chunk model related methods.
	CreateChunk(ctx context.Context, create *Chunk) (*Chunk, error)
	ListChunks(ctx context.Context, find *FindChunk) ([]*Chunk, error)
	DeleteChunk(ctx context.Context, delete *DeleteChunk) error

	// UpdateChunkEmbedding updates the embedding vector for a chunk.
	UpdateChunkEmbedding(ctx context.Context, id int32, embedding []float32) error

	// SearchChunksByVector performs semantic search using vector similarity.
	// Returns chunks and their similarity scores.
	SearchChunksByVector(ctx context.Context, embedding []float32, docType ChunkDocType, limit int) ([]*Chunk, []float32, error)

	// SessionRecord model related methods.
	UpsertSessionRecord(ctx context.Context, upsert *SessionRecord) (*SessionRecord, error)
	GetSessionRecord(ctx context.Context, uid string) (*SessionRecord, error)
	ListSessionRecords(ctx context.Context, find *FindSessionRecord) ([]*SessionRecord, error)
	DeleteSessionRecords(ctx context.Context, delete *DeleteSessionRecord) (int64, error)
}
