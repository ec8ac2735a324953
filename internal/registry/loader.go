// Package registry discovers model files on disk.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fastllamad/internal/common/fsutil"
	"fastllamad/pkg/types"
)

// DefaultExtensions are the model file extensions the engine can load.
var DefaultExtensions = []string{".bin", ".gguf"}

// Scanner finds model files in a directory by extension.
type Scanner struct {
	exts []string
}

// NewScanner matches DefaultExtensions, or exts when given.
// Matching is case-insensitive.
func NewScanner(exts ...string) *Scanner {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	lower := make([]string, len(exts))
	for i, e := range exts {
		lower[i] = strings.ToLower(e)
	}
	return &Scanner{exts: lower}
}

// Scan lists model files directly inside dir, sorted by name.
// ID is the full filename; Path is the absolute file path.
func (s *Scanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !s.match(ext) {
			continue
		}
		m := types.Model{ID: name, Path: filepath.Join(abs, name), Format: format(ext)}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func (s *Scanner) match(ext string) bool {
	for _, e := range s.exts {
		if e == ext {
			return true
		}
	}
	return false
}

func format(ext string) string {
	if ext == ".gguf" {
		return "gguf"
	}
	return "ggml"
}

// LoadDir scans dir with the default extensions.
func LoadDir(dir string) ([]types.Model, error) {
	return NewScanner().Scan(dir)
}

// Paths returns the model paths of LoadDir, or nil when dir is empty or
// unreadable.
func Paths(dir string) []string {
	if dir == "" {
		return nil
	}
	models, err := LoadDir(dir)
	if err != nil {
		return nil
	}
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.Path
	}
	return out
}
