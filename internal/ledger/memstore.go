package ledger

import (
	"context"
	"sync"
)

// MemStore is an in-memory [Ledger]. Used for tests and the "memory" storage
// backend. Safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	attempts []Attempt
}

var _ Ledger = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append records a.
func (s *MemStore) Append(_ context.Context, a Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
	return nil
}

// All returns every attempt in append order.
func (s *MemStore) All(_ context.Context) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out, nil
}

// AllForWord returns the attempts for wordID in append order.
func (s *MemStore) AllForWord(_ context.Context, wordID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Attempt
	for _, a := range s.attempts {
		if a.WordID == wordID {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteAllForWord removes every attempt referencing wordID.
func (s *MemStore) DeleteAllForWord(_ context.Context, wordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.attempts[:0]
	for _, a := range s.attempts {
		if a.WordID != wordID {
			kept = append(kept, a)
		}
	}
	s.attempts = kept
	return nil
}
