package words

import "context"

// Store provides CRUD operations for words.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new word. Returns an error if a word with the same ID
	// already exists.
	Create(ctx context.Context, w Word) error

	// Get retrieves a word by ID. Returns (zero, false, nil) if not found.
	Get(ctx context.Context, id string) (Word, bool, error)

	// List returns all words ordered by creation time, oldest first.
	List(ctx context.Context) ([]Word, error)

	// Delete removes a word by ID. Deleting a non-existent word is not an
	// error. Callers are responsible for cascading the deletion to the
	// word's attempts (the app layer wires this to the attempt ledger).
	Delete(ctx context.Context, id string) error
}
