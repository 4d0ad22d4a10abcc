package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/store"
)

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func (d *DB) CreateChunk(ctx context.Context, create *store.Chunk) (*store.Chunk, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	metadata, err := json.Marshal(create.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal chunk metadata")
	}

	stmt := `
		INSERT INTO chunk (uid, created_ts, doc_type, source, text, topics, metadata)
		VALUES (` + placeholders(7) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.CreatedTs,
		create.DocType,
		create.Source,
		create.Text,
		create.Topics,
		metadata,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create chunk")
	}
	return create, nil
}

func (d *DB) ListChunks(ctx context.Context, find *store.FindChunk) ([]*store.Chunk, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.DocType != nil {
		where, args = append(where, "doc_type = "+placeholder(len(args)+1)), append(args, *find.DocType)
	}
	if find.Keyword != nil {
		pattern := "%" + strings.ToLower(*find.Keyword) + "%"
		where = append(where, "(LOWER(text) LIKE "+placeholder(len(args)+1)+" OR LOWER(topics) LIKE "+placeholder(len(args)+2)+")")
		args = append(args, pattern, pattern)
	}

	query := `
		SELECT id, uid, created_ts, doc_type, source, text, topics, metadata
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY source ASC, id ASC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chunks")
	}
	defer rows.Close()

	list := []*store.Chunk{}
	for rows.Next() {
		var chunk store.Chunk
		var metadata []byte
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
			return nil, errors.Wrap(err, "failed to scan chunk")
		}
		if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
			chunk.Metadata = map[string]string{}
		}
		list = append(list, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate chunks")
	}
	return list, nil
}

func (d *DB) DeleteChunk(ctx context.Context, delete *store.DeleteChunk) error {
	where, args := []string{"1 = 1"}, []any{}
	if delete.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *delete.ID)
	}
	if delete.DocType != nil {
		where, args = append(where, "doc_type = "+placeholder(len(args)+1)), append(args, *delete.DocType)
	}
	stmt := "DELETE FROM chunk WHERE " + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete chunks")
	}
	return nil
}

// UpdateChunkEmbedding updates the embedding vector for a chunk.
func (d *DB) UpdateChunkEmbedding(ctx context.Context, id int32, embedding []float32) error {
	vector := pgvector.NewVector(embedding)
	if _, err := d.db.ExecContext(ctx,
		"UPDATE chunk SET embedding = $1 WHERE id = $2", vector, id,
	); err != nil {
		return errors.Wrap(err, "failed to update chunk embedding")
	}
	return nil
}

// SearchChunksByVector performs semantic search using cosine distance.
// Ordering is deterministic: distance, then source, then id.
func (d *DB) SearchChunksByVector(ctx context.Context, embedding []float32, docType store.ChunkDocType, limit int) ([]*store.Chunk, []float32, error) {
	vector := pgvector.NewVector(embedding)

	where, args := []string{"embedding IS NOT NULL"}, []any{vector}
	if docType != "" {
		where, args = append(where, "doc_type = "+placeholder(len(args)+1)), append(args, docType)
	}
	args = append(args, limit)

	query := `
		SELECT id, uid, created_ts, doc_type, source, text, topics, metadata,
			1 - (embedding <=> $1) AS similarity
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> $1, source ASC, id ASC
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to search chunks by vector")
	}
	defer rows.Close()

	chunks := []*store.Chunk{}
	scores := []float32{}
	for rows.Next() {
		var chunk store.Chunk
		var metadata []byte
		var similarity float32
		if err := rows.Scan(
			&chunk.ID,
			&chunk.UID,
			&chunk.CreatedTs,
			&chunk.DocType,
			&chunk.Source,
			&chunk.Text,
			&chunk.Topics,
			&metadata,
			&similarity,
		); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan chunk")
		}
		if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
			chunk.Metadata = map[string]string{}
		}
		chunks = append(chunks, &chunk)
		scores = append(scores, similarity)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to iterate chunks")
	}
	return chunks, scores, nil
}
