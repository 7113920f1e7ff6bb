// Package postgres provides a PostgreSQL-backed implementation of
// [ledger.Ledger] using pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fluencyboost/fluencyboost/internal/ledger"
)

// Schema is the SQL DDL for the attempts table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id          TEXT         PRIMARY KEY,
    word_id     TEXT         NOT NULL,
    score       DOUBLE PRECISION NOT NULL,
    spoken_text TEXT         NOT NULL DEFAULT '',
    timestamp   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    seq         BIGSERIAL
);
CREATE INDEX IF NOT EXISTS idx_attempts_word_id ON attempts (word_id);
CREATE INDEX IF NOT EXISTS idx_attempts_seq ON attempts (seq);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [ledger.Ledger] backed by a PostgreSQL database. Append order is
// preserved via a serial sequence column rather than the timestamp, so two
// appends within the same clock tick still read back in insertion order.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ ledger.Ledger = (*Store)(nil)

// NewStore creates a Store using the given connection or pool. The caller is
// responsible for calling [Store.Migrate] before issuing queries.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL, creating the attempts table and indexes
// if they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// Append inserts a.
func (s *Store) Append(ctx context.Context, a ledger.Attempt) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO attempts (id, word_id, score, spoken_text, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.WordID, a.Score, a.SpokenText, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

// All returns every attempt in append order.
func (s *Store) All(ctx context.Context) ([]ledger.Attempt, error) {
	return s.query(ctx,
		`SELECT id, word_id, score, spoken_text, timestamp FROM attempts ORDER BY seq`,
	)
}

// AllForWord returns the attempts for wordID in append order.
func (s *Store) AllForWord(ctx context.Context, wordID string) ([]ledger.Attempt, error) {
	return s.query(ctx,
		`SELECT id, word_id, score, spoken_text, timestamp FROM attempts WHERE word_id = $1 ORDER BY seq`,
		wordID,
	)
}

// DeleteAllForWord removes every attempt referencing wordID.
func (s *Store) DeleteAllForWord(ctx context.Context, wordID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM attempts WHERE word_id = $1`, wordID); err != nil {
		return fmt.Errorf("ledger: delete for word %q: %w", wordID, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]ledger.Attempt, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	var out []ledger.Attempt
	for rows.Next() {
		var a ledger.Attempt
		if err := rows.Scan(&a.ID, &a.WordID, &a.Score, &a.SpokenText, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: rows: %w", err)
	}
	return out, nil
}
