package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/eduloop/eduloop/store"
)

func (d *DB) UpsertSessionRecord(ctx context.Context, upsert *store.SessionRecord) (*store.SessionRecord, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `
		INSERT INTO learning_session (uid, created_ts, updated_ts, state, topic, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (uid)
		DO UPDATE SET
			updated_ts = excluded.updated_ts,
			state = excluded.state,
			topic = excluded.topic,
			payload = excluded.payload
		RETURNING id, created_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UID,
		upsert.CreatedTs,
		upsert.UpdatedTs,
		upsert.State,
		upsert.Topic,
		string(upsert.Payload),
	).Scan(&upsert.ID, &upsert.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert session record")
	}
	return upsert, nil
}

func (d *DB) GetSessionRecord(ctx context.Context, uid string) (*store.SessionRecord, error) {
	query := `
		SELECT id, uid, created_ts, updated_ts, state, topic, payload
		FROM learning_session
		WHERE uid = ?
	`
	var record store.SessionRecord
	var payload string
	err := d.db.QueryRowContext(ctx, query, uid).Scan(
		&record.ID,
		&record.UID,
		&record.CreatedTs,
		&record.UpdatedTs,
		&record.State,
		&record.Topic,
		&payload,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session record")
	}
	record.Payload = []byte(payload)
	return &record, nil
}

func (d *DB) ListSessionRecords(ctx context.Context, find *store.FindSessionRecord) ([]*store.SessionRecord, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.State != nil {
		where, args = append(where, "state = ?"), append(args, *find.State)
	}

	query := `
		SELECT id, uid, created_ts, updated_ts, state, topic, payload
		FROM learning_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, id DESC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list session records")
	}
	defer rows.Close()

	list := []*store.SessionRecord{}
	for rows.Next() {
		var record store.SessionRecord
		var payload string
		if err := rows.Scan(
			&record.ID,
			&record.UID,
			&record.CreatedTs,
			&record.UpdatedTs,
			&record.State,
			&record.Topic,
			&payload,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan session record")
		}
		record.Payload = []byte(payload)
		list = append(list, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate session records")
	}
	return list, nil
}

func (d *DB) DeleteSessionRecords(ctx context.Context, delete *store.DeleteSessionRecord) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}
	if delete.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *delete.UID)
	}
	if delete.UpdatedBefore != nil {
		where, args = append(where, "updated_ts < ?"), append(args, *delete.UpdatedBefore)
	}
	stmt := "DELETE FROM learning_session WHERE " + strings.Join(where, " AND ")
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete session records")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}
	return affected, nil
}
