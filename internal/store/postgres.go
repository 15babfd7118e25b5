// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	cerrors "carelink-workers/internal/common/errors"
)

// fieldPattern restricts filter fields to plain identifiers; field names are
// interpolated into the jsonb accessor and must never carry user input.
var fieldPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// PostgresStore keeps every record as one row in a jsonb document table:
//
//	CREATE TABLE records (
//	    path       text PRIMARY KEY,
//	    collection text NOT NULL,
//	    data       jsonb NOT NULL,
//	    updated_at timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE INDEX records_collection_idx ON records (collection);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filters []Filter) ([]Record, error) {
	query := `SELECT path, data FROM records WHERE collection = $1`
	args := []interface{}{collection}

	for _, f := range filters {
		if !fieldPattern.MatchString(f.Field) {
			return nil, cerrors.E(cerrors.KindInvalidArgument, cerrors.ErrCodeStoreQueryFailed,
				fmt.Sprintf("invalid filter field %q", f.Field))
		}
		var op string
		switch f.Op {
		case OpEq:
			op = "="
		case OpLte:
			op = "<="
		case OpGte:
			op = ">="
		default:
			return nil, cerrors.E(cerrors.KindInvalidArgument, cerrors.ErrCodeStoreQueryFailed,
				fmt.Sprintf("unsupported filter op %q", f.Op))
		}
		query += fmt.Sprintf(" AND data->>'%s' %s $%d", f.Field, op, len(args)+1)
		args = append(args, FormatValue(f.Value))
	}
	query += ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeStoreQueryFailed, "query records", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var path string
		var data []byte
		if err := rows.Scan(&path, &data); err != nil {
			return nil, cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeStoreQueryFailed, "scan record", err)
		}
		fields := map[string]interface{}{}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, cerrors.Wrap(cerrors.KindInternal, cerrors.ErrCodeStoreQueryFailed, "decode record "+path, err)
		}
		records = append(records, Record{Path: path, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeStoreQueryFailed, "iterate records", err)
	}

	return records, nil
}

func (s *PostgresStore) Get(ctx context.Context, path string) (*Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE path = $1`, path).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeStoreQueryFailed, "get record "+path, err)
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, cerrors.Wrap(cerrors.KindInternal, cerrors.ErrCodeStoreQueryFailed, "decode record "+path, err)
	}
	return &Record{Path: path, Fields: fields}, nil
}

func (s *PostgresStore) BatchWrite(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeStoreWriteFailed, "begin batch", err)
	}

	const upsert = `
		INSERT INTO records (path, collection, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (path)
		DO UPDATE SET data = records.data || EXCLUDED.data, updated_at = now()`

	for _, w := range writes {
		data, err := json.Marshal(w.Fields)
		if err != nil {
			_ = tx.Rollback()
			return cerrors.Wrap(cerrors.KindInternal, cerrors.ErrCodeStoreWriteFailed, "encode write "+w.Path, err)
		}
		if _, err := tx.ExecContext(ctx, upsert, w.Path, CollectionOf(w.Path), data); err != nil {
			_ = tx.Rollback()
			return cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeStoreWriteFailed, "write "+w.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeStoreWriteFailed, "commit batch", err)
	}
	return nil
}
