package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluencyboost/fluencyboost/internal/ledger"
	"github.com/fluencyboost/fluencyboost/internal/ledger/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if FLUENCYBOOST_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("FLUENCYBOOST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FLUENCYBOOST_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] over a clean attempts table.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testDSN(t))
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS attempts CASCADE"); err != nil {
		t.Fatalf("drop attempts: %v", err)
	}

	store := postgres.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func TestStore_AppendAndAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// All appends share one timestamp: read-back order must come from the
	// serial sequence, not the clock.
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, score := range []float64{90, 60, 85} {
		a := ledger.NewAttempt("w1", score, "x")
		a.Timestamp = now
		if err := store.Append(ctx, a); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	got, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("All returned %d attempts; want 3", len(got))
	}
	for i, want := range []float64{90, 60, 85} {
		if got[i].Score != want {
			t.Errorf("attempt %d score = %v; want %v", i, got[i].Score, want)
		}
	}
}

func TestStore_AllForWord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, wordID := range []string{"w1", "w2", "w1"} {
		if err := store.Append(ctx, ledger.NewAttempt(wordID, 50, "x")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.AllForWord(ctx, "w1")
	if err != nil {
		t.Fatalf("AllForWord: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("AllForWord returned %d attempts; want 2", len(got))
	}
	for _, a := range got {
		if a.WordID != "w1" {
			t.Errorf("attempt for word %q leaked into w1 query", a.WordID)
		}
	}
}

func TestStore_DeleteAllForWord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, wordID := range []string{"w1", "w2", "w1"} {
		if err := store.Append(ctx, ledger.NewAttempt(wordID, 50, "x")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if err := store.DeleteAllForWord(ctx, "w1"); err != nil {
		t.Fatalf("DeleteAllForWord: %v", err)
	}
	got, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 1 || got[0].WordID != "w2" {
		t.Errorf("attempts after cascade = %v; want only w2", got)
	}

	// Deleting for an unknown word is not an error.
	if err := store.DeleteAllForWord(ctx, "ghost"); err != nil {
		t.Errorf("DeleteAllForWord(ghost): %v", err)
	}
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}
