package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // database/sql driver
)

//go:embed sql/ddl.sql
var ddl embed.FS

// SQLiteStore implements Store on a local sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the trial database at path and
// applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("results db path not specified")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results db %s: %w", path, err)
	}
	schema, err := ddl.ReadFile("sql/ddl.sql")
	if err != nil {
		return nil, fmt.Errorf("reading results schema: %w", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying results schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBatch persists a batch and its trials in one transaction.
func (s *SQLiteStore) SaveBatch(ctx context.Context, b Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, scale, mode, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.Scale, b.Mode, created.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("inserting batch %s: %w", b.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trials (batch_id, seq, ts, params, flag) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing trial insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range b.Trials {
		params, err := json.Marshal(t.Params)
		if err != nil {
			return fmt.Errorf("encoding trial %d params: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, b.ID, i, t.TS, string(params), t.Flag); err != nil {
			return fmt.Errorf("inserting trial %d of batch %s: %w", i, b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch %s: %w", b.ID, err)
	}
	return nil
}

// TrialsAtScale returns every persisted trial at the given scale.
func (s *SQLiteStore) TrialsAtScale(ctx context.Context, scale float64) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.ts, t.params, t.flag
		 FROM trials t JOIN batches b ON t.batch_id = b.id
		 WHERE b.scale = ? ORDER BY b.created_at, t.seq`, scale)
	if err != nil {
		return nil, fmt.Errorf("querying trials at scale %v: %w", scale, err)
	}
	defer rows.Close()

	var out []Trial
	for rows.Next() {
		var t Trial
		var params string
		if err := rows.Scan(&t.TS, &params, &t.Flag); err != nil {
			return nil, fmt.Errorf("scanning trial row: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &t.Params); err != nil {
			return nil, fmt.Errorf("decoding trial params: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trial rows: %w", err)
	}
	return out, nil
}

// BackgroundTS returns the TS values of all background-only trials.
func (s *SQLiteStore) BackgroundTS(ctx context.Context) ([]float64, error) {
	trials, err := s.TrialsAtScale(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, ErrNoBackground
	}
	out := make([]float64, len(trials))
	for i, t := range trials {
		out[i] = t.TS
	}
	return out, nil
}

// Scales lists the distinct injection scales persisted so far.
func (s *SQLiteStore) Scales(ctx context.Context) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT scale FROM batches ORDER BY scale`)
	if err != nil {
		return nil, fmt.Errorf("querying scales: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning scale row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scale rows: %w", err)
	}
	return out, nil
}
