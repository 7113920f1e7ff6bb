package words

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore persists words as a single JSON document on disk. Writes replace
// the file atomically (write to a temp file, then rename) so a crash never
// leaves a half-written word list. Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore writing to path. The file is created on
// first write; a missing file reads as an empty word list.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Create inserts w and rewrites the file.
func (s *FileStore) Create(_ context.Context, w Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing.ID == w.ID {
			return fmt.Errorf("words: id %q already exists", w.ID)
		}
	}
	list = append(list, w)
	return s.save(list)
}

// Get retrieves a word by ID.
func (s *FileStore) Get(_ context.Context, id string) (Word, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return Word{}, false, err
	}
	for _, w := range list {
		if w.ID == id {
			return w, true, nil
		}
	}
	return Word{}, false, nil
}

// List returns all words ordered by creation time, oldest first.
func (s *FileStore) List(_ context.Context) ([]Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

// Delete removes the word with the given ID, if present, and rewrites the file.
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, w := range list {
		if w.ID != id {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return s.save(kept)
}

// load reads and decodes the word list. A missing file is an empty list.
func (s *FileStore) load() ([]Word, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("words: read %q: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var list []Word
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("words: decode %q: %w", s.path, err)
	}
	return list, nil
}

// save encodes list and atomically replaces the file.
func (s *FileStore) save(list []Word) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("words: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".words-*.json")
	if err != nil {
		return fmt.Errorf("words: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("words: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("words: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("words: rename temp file: %w", err)
	}
	return nil
}
