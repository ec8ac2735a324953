// Package filemanager lets a client browse the workspace to pick model and
// adapter files.
package filemanager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"fastllamad/internal/common/fsutil"
)

// Kind distinguishes files from directories in a listing.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "directory"
)

// Entry is one item of a directory listing.
type Entry struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Listing is the content of the current directory.
type Listing struct {
	Path  string
	Files []Entry
}

// Browser tracks the current directory of one client. Navigation never
// leaves root.
type Browser struct {
	mu   sync.Mutex
	root string
	cur  string
}

// New starts a browser at root, which must be an existing directory.
func New(root string) (*Browser, error) {
	r, err := fsutil.RealPath(root)
	if err != nil {
		return nil, err
	}
	if !fsutil.IsDir(r) {
		return nil, fmt.Errorf("'%s' is not a directory", root)
	}
	return &Browser{root: r, cur: r}, nil
}

// Path returns the current directory.
func (b *Browser) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// List reads the current directory.
func (b *Browser) List() (Listing, error) {
	return list(b.Path())
}

// OpenDir moves into path, absolute or relative to the current directory.
func (b *Browser) OpenDir(path string) (Listing, error) {
	b.mu.Lock()
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(b.cur, target)
	}
	b.mu.Unlock()
	if !fsutil.PathExists(target) {
		return Listing{}, fmt.Errorf("'%s' does not exist", path)
	}
	if !fsutil.IsDir(target) {
		return Listing{}, fmt.Errorf("'%s' must be a directory", path)
	}
	resolved, err := fsutil.RealPath(target)
	if err != nil {
		return Listing{}, err
	}
	if !within(b.root, resolved) {
		return Listing{}, fmt.Errorf("'%s' is outside the workspace", path)
	}
	l, err := list(resolved)
	if err != nil {
		return Listing{}, err
	}
	b.mu.Lock()
	b.cur = resolved
	b.mu.Unlock()
	return l, nil
}

// GoBack moves to the parent directory, stopping at root.
func (b *Browser) GoBack() (Listing, error) {
	b.mu.Lock()
	if b.cur != b.root {
		b.cur = filepath.Dir(b.cur)
	}
	cur := b.cur
	b.mu.Unlock()
	return list(cur)
}

func list(dir string) (Listing, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("read dir: %w", err)
	}
	files := make([]Entry, 0, len(des))
	for _, de := range des {
		full := filepath.Join(dir, de.Name())
		kind := KindFile
		if fsutil.IsDir(full) {
			kind = KindDir
		} else if !fsutil.IsFile(full) {
			continue
		}
		files = append(files, Entry{Path: full, Name: de.Name(), Kind: kind})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Kind != files[j].Kind {
			return files[i].Kind == KindDir
		}
		return files[i].Name < files[j].Name
	})
	return Listing{Path: dir, Files: files}, nil
}

func within(root, p string) bool {
	if p == root {
		return true
	}
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
