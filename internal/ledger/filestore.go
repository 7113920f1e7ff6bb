package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists attempts as append-only JSON lines in a local file,
// suitable for single-user installs where running PostgreSQL would be
// overkill. Each Append is a single buffered write under the mutex, so
// concurrent appends never interleave within a line. Thread-safe for
// concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Ledger = (*FileStore)(nil)

// NewFileStore creates a FileStore that appends to path. The file is created
// on first append; a missing file reads as an empty ledger.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes a as one JSON line at the end of the file.
func (s *FileStore) Append(_ context.Context, a Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("ledger: marshal: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("ledger: write: %w", err)
	}
	return nil
}

// All returns every attempt in file order.
func (s *FileStore) All(_ context.Context) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(func(Attempt) bool { return true })
}

// AllForWord returns the attempts for wordID in file order.
func (s *FileStore) AllForWord(_ context.Context, wordID string) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(func(a Attempt) bool { return a.WordID == wordID })
}

// DeleteAllForWord rewrites the file without the attempts referencing wordID.
// The rewrite goes through a temp file and rename so a crash never loses the
// whole ledger.
func (s *FileStore) DeleteAllForWord(_ context.Context, wordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept, err := s.read(func(a Attempt) bool { return a.WordID != wordID })
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".attempts-*.jsonl")
	if err != nil {
		return fmt.Errorf("ledger: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, a := range kept {
		data, err := json.Marshal(a)
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("ledger: marshal: %w", err)
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("ledger: write temp file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ledger: flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: rename temp file: %w", err)
	}
	return nil
}

// read scans the file and returns attempts passing keep. Lines that fail to
// parse are skipped rather than aborting the read; a torn final line from a
// crashed append must not make the whole ledger unreadable.
func (s *FileStore) read(keep func(Attempt) bool) ([]Attempt, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: open %q: %w", s.path, err)
	}
	defer f.Close()

	var out []Attempt
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var a Attempt
		if err := json.Unmarshal(line, &a); err != nil {
			continue
		}
		if keep(a) {
			out = append(out, a)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ledger: scan %q: %w", s.path, err)
	}
	return out, nil
}
