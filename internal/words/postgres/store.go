// Package postgres provides a PostgreSQL-backed implementation of
// [words.Store] using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fluencyboost/fluencyboost/internal/words"
)

// Schema is the SQL DDL for the words table. Execute it via [Store.Migrate]
// or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS words (
    id          TEXT         PRIMARY KEY,
    text        TEXT         NOT NULL,
    translation TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_words_created_at ON words (created_at);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [words.Store] backed by a PostgreSQL database.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ words.Store = (*Store)(nil)

// NewStore creates a Store using the given connection or pool. The caller is
// responsible for calling [Store.Migrate] to ensure the schema exists before
// issuing queries.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL, creating the words table and index if
// they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("words: migrate: %w", err)
	}
	return nil
}

// Create inserts a new word. Returns an error if the ID already exists.
func (s *Store) Create(ctx context.Context, w words.Word) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO words (id, text, translation, created_at) VALUES ($1, $2, $3, $4)`,
		w.ID, w.Text, w.Translation, w.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("words: id %q already exists", w.ID)
		}
		return fmt.Errorf("words: insert: %w", err)
	}
	return nil
}

// Get retrieves a word by ID. Returns (zero, false, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (words.Word, bool, error) {
	var w words.Word
	err := s.db.QueryRow(ctx,
		`SELECT id, text, translation, created_at FROM words WHERE id = $1`,
		id,
	).Scan(&w.ID, &w.Text, &w.Translation, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return words.Word{}, false, nil
	}
	if err != nil {
		return words.Word{}, false, fmt.Errorf("words: get %q: %w", id, err)
	}
	return w, true, nil
}

// List returns all words ordered by creation time, oldest first.
func (s *Store) List(ctx context.Context) ([]words.Word, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, text, translation, created_at FROM words ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("words: list: %w", err)
	}
	defer rows.Close()

	var out []words.Word
	for rows.Next() {
		var w words.Word
		if err := rows.Scan(&w.ID, &w.Text, &w.Translation, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("words: scan: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("words: list rows: %w", err)
	}
	return out, nil
}

// Delete removes a word by ID. Deleting a non-existent word is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM words WHERE id = $1`, id); err != nil {
		return fmt.Errorf("words: delete %q: %w", id, err)
	}
	return nil
}
