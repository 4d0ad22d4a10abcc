package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/internal/profile"
	"github.com/eduloop/eduloop/store"
)

// PostgreSQL is the full-featured driver: keyword retrieval plus vector
// search over chunk embeddings via the pgvector extension.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Small pool: the orchestrator serializes per session, so concurrency here
	// is bounded by the number of live sessions, not request volume.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := DB{db: db, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('chunk', 'learning_session')
	`).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "failed to check schema")
	}
	return count == 2, nil
}

func (d *DB) ApplySchema(ctx context.Context) error {
	embeddingDim := d.profile.AIEmbeddingDim
	if embeddingDim <= 0 {
		embeddingDim = 1024
	}

	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE chunk (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	created_ts BIGINT NOT NULL,
	doc_type TEXT NOT NULL,
	source TEXT NOT NULL,
	text TEXT NOT NULL,
	topics TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}',
	embedding vector(%d)
);

CREATE INDEX idx_chunk_doc_type ON chunk (doc_type);

CREATE TABLE learning_session (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	state TEXT NOT NULL,
	topic TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX idx_learning_session_updated_ts ON learning_session (updated_ts);
`, embeddingDim)

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
