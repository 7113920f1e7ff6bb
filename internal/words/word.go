// Package words defines the Word entity and its storage interface.
//
// A Word is a practice target: the text the learner is trying to pronounce
// plus its translation. Words are immutable once created; the only mutation
// is deletion, which cascades to the word's recorded attempts (see
// [Store.Delete]).
package words

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Word is a single practice target.
type Word struct {
	// ID is the opaque word identifier. Attempts reference words by ID.
	ID string `json:"id"`

	// Text is the word or phrase to pronounce, stored verbatim for display
	// and reference playback. Comparison always goes through normalisation
	// first.
	Text string `json:"text"`

	// Translation is the learner-language gloss shown alongside the word.
	Translation string `json:"translation"`

	// CreatedAt is when the word was added.
	CreatedAt time.Time `json:"created_at"`
}

// New creates a Word with a fresh ID and the current UTC timestamp.
// Returns an error if text is blank.
func New(text, translation string) (Word, error) {
	if strings.TrimSpace(text) == "" {
		return Word{}, errors.New("words: text must not be empty")
	}
	return Word{
		ID:          uuid.NewString(),
		Text:        text,
		Translation: translation,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
