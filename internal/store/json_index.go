package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// JSONIndexFile is the descriptor file kept in the saves directory.
const JSONIndexFile = "session-data.json"

// JSONIndex keeps descriptors in a single JSON array file.
type JSONIndex struct {
	mu   sync.Mutex
	path string
}

// OpenJSONIndex uses dir/session-data.json, creating dir if needed.
func OpenJSONIndex(dir string) (*JSONIndex, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating saves directory: %w", err)
	}
	return &JSONIndex{path: filepath.Join(dir, JSONIndexFile)}, nil
}

func (x *JSONIndex) read() ([]Descriptor, error) {
	b, err := os.ReadFile(x.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session index: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	var ds []Descriptor
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("decoding session index: %w", err)
	}
	return ds, nil
}

func (x *JSONIndex) write(ds []Descriptor) error {
	if ds == nil {
		ds = []Descriptor{}
	}
	b, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session index: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(x.path), ".session-data-*.json")
	if err != nil {
		return fmt.Errorf("writing session index: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session index: %w", err)
	}
	if err := os.Rename(tmp.Name(), x.path); err != nil {
		return fmt.Errorf("replacing session index: %w", err)
	}
	return nil
}

func (x *JSONIndex) List() ([]Descriptor, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	ds, err := x.read()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Date < ds[j].Date })
	return ds, nil
}

func (x *JSONIndex) Get(id string) (Descriptor, bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	ds, err := x.read()
	if err != nil {
		return Descriptor{}, false, err
	}
	for _, d := range ds {
		if d.ID == id {
			return d, true, nil
		}
	}
	return Descriptor{}, false, nil
}

func (x *JSONIndex) Put(d Descriptor) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	ds, err := x.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range ds {
		if ds[i].ID == d.ID {
			ds[i] = d
			replaced = true
		}
	}
	if !replaced {
		ds = append(ds, d)
	}
	return x.write(ds)
}

func (x *JSONIndex) Delete(id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	ds, err := x.read()
	if err != nil {
		return err
	}
	out := ds[:0]
	for _, d := range ds {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return x.write(out)
}

func (x *JSONIndex) Close() error { return nil }
