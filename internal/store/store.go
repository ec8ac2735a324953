package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fastllamad/internal/common/fsutil"
)

// notFoundError is returned for ids that have no descriptor.
type notFoundError struct{ id string }

func (e notFoundError) Error() string { return "session not found: " + e.id }

// IsNotFound reports whether err is a missing-descriptor error.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

// Store owns the saves directory. It is shared by every session in the
// process; writes to the directory and the index are serialized.
type Store struct {
	mu    sync.Mutex
	dir   string
	index Index
}

// Open creates dir if needed and opens the index backend in it.
func Open(dir, backend string) (*Store, error) {
	var (
		idx Index
		err error
	)
	switch backend {
	case "", BackendJSON:
		idx, err = OpenJSONIndex(dir)
	case BackendSQLite:
		idx, err = OpenSQLiteIndex(dir)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return New(dir, idx), nil
}

// New wraps an existing index.
func New(dir string, idx Index) *Store { return &Store{dir: dir, index: idx} }

// Dir returns the saves directory.
func (s *Store) Dir() string { return s.dir }

// SnapshotPath is where the snapshot of d lives.
func (s *Store) SnapshotPath(d Descriptor) string {
	return filepath.Join(s.dir, filepath.Base(d.Filename))
}

// Valid reports whether both the snapshot and the model file of d exist.
func (s *Store) Valid(d Descriptor) bool {
	return fsutil.IsFile(s.SnapshotPath(d)) && fsutil.IsFile(d.ModelPath)
}

// List returns the descriptors that are currently valid.
func (s *Store) List() ([]Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.index.List()
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, len(all))
	for _, d := range all {
		if s.Valid(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Lookup returns the descriptor for id whether or not it is valid.
func (s *Store) Lookup(id string) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok, err := s.index.Get(id)
	if err != nil {
		return Descriptor{}, err
	}
	if !ok {
		return Descriptor{}, notFoundError{id: id}
	}
	return d, nil
}

// Save runs write against the snapshot path of d and records d on success.
func (s *Store) Save(d Descriptor, write func(path string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating saves directory: %w", err)
	}
	p := s.SnapshotPath(d)
	if err := write(p); err != nil {
		_ = os.Remove(p)
		return err
	}
	if err := s.index.Put(d); err != nil {
		_ = os.Remove(p)
		return err
	}
	return nil
}

// Delete removes the snapshot and descriptor of id. Unknown ids return a
// not-found error without touching the directory.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok, err := s.index.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundError{id: id}
	}
	if err := os.Remove(s.SnapshotPath(d)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return s.index.Delete(id)
}

// Close releases the index.
func (s *Store) Close() error { return s.index.Close() }
