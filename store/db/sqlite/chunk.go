package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/eduloop/eduloop/store"
)

// Vector search is NOT supported on SQLite. Keyword retrieval works on both
// drivers; embedding-based retrieval requires PostgreSQL with pgvector.
var ErrSQLiteVectorNotSupported = errors.New("vector search is not supported on SQLite; use PostgreSQL")

func (d *DB) CreateChunk(ctx context.Context, create *store.Chunk) (*store.Chunk, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	metadata, err := json.Marshal(create.Metadata)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to marshal chunk metadata")
	}

	stmt := `
		INSERT INTO chunk (uid, created_ts, doc_type, source, text, topics, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.CreatedTs,
		create.DocType,
		create.Source,
		create.Text,
		create.Topics,
		string(metadata),
	).Scan(&create.ID); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create chunk")
	}
	return create, nil
}

func (d *DB) ListChunks(ctx context.Context, find *store.FindChunk) ([]*store.Chunk, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.DocType != nil {
		where, args = append(where, "doc_type = ?"), append(args, *find.DocType)
	}
	if find.Keyword != nil {
		pattern := "%" + strings.ToLower(*find.Keyword) + "%"
		where, args = append(where, "(LOWER(text) LIKE ? OR LOWER(topics) LIKE ?)"), append(args, pattern, pattern)
	}

	query := `
		SELECT id, uid, created_ts, doc_type, source, text, topics, metadata
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY source ASC, id ASC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list chunks")
	}
	defer rows.Close()

	list := []*store.Chunk{}
	for rows.Next() {
		var chunk store.Chunk
		var metadata string
		if err := rows.Scan(
			&chunk.ID,
			&chunk.UID,
			&chunk.CreatedTs,
			&chunk.DocType,
			&chunk.Source,
			&chunk.Text,
			&chunk.Topics,
			&metadata,
		); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to scan chunk")
		}
		if err := json.Unmarshal([]byte(metadata), &chunk.Metadata); err != nil {
			chunk.Metadata = map[string]string{}
		}
		list = append(list, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to iterate chunks")
	}
	return list, nil
}

func (d *DB) DeleteChunk(ctx context.Context, delete *store.DeleteChunk) error {
	where, args := []string{"1 = 1"}, []any{}
	if delete.ID != nil {
		where, args = append(where, "id = ?"), append(args, *delete.ID)
	}
	if delete.DocType != nil {
		where, args = append(where, "doc_type = ?"), append(args, *delete.DocType)
	}
	stmt := "DELETE FROM chunk WHERE " + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return pkgerrors.Wrap(err, "failed to delete chunks")
	}
	return nil
}

func (d *DB) UpdateChunkEmbedding(ctx context.Context, id int32, embedding []float32) error {
	return ErrSQLiteVectorNotSupported
}

func (d *DB) SearchChunksByVector(ctx context.Context, embedding []float32, docType store.ChunkDocType, limit int) ([]*store.Chunk, []float32, error) {
	return nil, nil, ErrSQLiteVectorNotSupported
}
