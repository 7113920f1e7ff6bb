// Package ledger defines the append-only attempt ledger: the durable history
// of scored pronunciation attempts that backs all statistics.
//
// Attempts are immutable after creation. The only removal path is
// [Ledger.DeleteAllForWord], invoked when a word is deleted so its attempts
// do not dangle in statistics. Implementations must make each append atomic:
// concurrent appends may interleave in any order but must never lose entries.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Attempt is one scored recognition event tied to a word.
type Attempt struct {
	// ID is the opaque attempt identifier.
	ID string `json:"id"`

	// WordID references the practiced word. The reference is weak: the word
	// may have been deleted since, in which case the attempt is removed by
	// the cascade.
	WordID string `json:"word_id"`

	// Score is the final blended score in [0, 100].
	Score float64 `json:"score"`

	// SpokenText is the raw transcript as recognised, before any
	// normalisation. Empty when the recognizer reported nothing. Kept
	// verbatim for display and mispronunciation grouping.
	SpokenText string `json:"spoken_text,omitempty"`

	// Timestamp is when the attempt was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// NewAttempt builds an Attempt with a fresh ID and the current UTC timestamp.
func NewAttempt(wordID string, score float64, spokenText string) Attempt {
	return Attempt{
		ID:         uuid.NewString(),
		WordID:     wordID,
		Score:      score,
		SpokenText: spokenText,
		Timestamp:  time.Now().UTC(),
	}
}

// Ledger is the append-only store of attempts.
// Implementations must be safe for concurrent use.
type Ledger interface {
	// Append records a new attempt and returns it. Always succeeds given
	// valid inputs and a healthy backing store.
	Append(ctx context.Context, a Attempt) error

	// All returns every recorded attempt in append order.
	All(ctx context.Context) ([]Attempt, error)

	// AllForWord returns the attempts referencing wordID in append order.
	AllForWord(ctx context.Context, wordID string) ([]Attempt, error)

	// DeleteAllForWord removes every attempt referencing wordID. Called as
	// the cascade step of word deletion; deleting for an unknown word is not
	// an error.
	DeleteAllForWord(ctx context.Context, wordID string) error
}
