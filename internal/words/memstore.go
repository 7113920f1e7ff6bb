package words

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory [Store]. Used for tests and the "memory" storage
// backend. Safe for concurrent use.
type MemStore struct {
	mu    sync.RWMutex
	words map[string]Word
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{words: make(map[string]Word)}
}

// Create inserts w. Returns an error if the ID is already taken.
func (s *MemStore) Create(_ context.Context, w Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.words[w.ID]; ok {
		return fmt.Errorf("words: id %q already exists", w.ID)
	}
	s.words[w.ID] = w
	return nil
}

// Get retrieves a word by ID.
func (s *MemStore) Get(_ context.Context, id string) (Word, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.words[id]
	return w, ok, nil
}

// List returns all words ordered by creation time, oldest first.
func (s *MemStore) List(_ context.Context) ([]Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Word, 0, len(s.words))
	for _, w := range s.words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the word with the given ID, if present.
func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.words, id)
	return nil
}
