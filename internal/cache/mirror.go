package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Mirror persists one store's snapshot as a JSON file. A nil Mirror, or one
// with no directory, keeps nothing on disk.
type Mirror struct {
	path string
}

// NewMirror returns the mirror for name under dir.
func NewMirror(dir, name string) *Mirror {
	if dir == "" {
		return &Mirror{}
	}
	return &Mirror{path: filepath.Join(dir, name+".json")}
}

func (m *Mirror) Path() string {
	if m == nil {
		return ""
	}
	return m.path
}

// Load decodes the snapshot into v. It reports false when there is none.
func (m *Mirror) Load(v any) (bool, error) {
	if m.Path() == "" {
		return false, nil
	}
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read mirror: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode mirror %s: %w", m.path, err)
	}
	return true, nil
}

// Save replaces the snapshot with v. The file is written to a temporary name
// first so a crash never leaves a truncated mirror.
func (m *Mirror) Save(v any) error {
	if m.Path() == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mirror: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}
	return nil
}

// Clear removes the snapshot.
func (m *Mirror) Clear() error {
	if m.Path() == "" {
		return nil
	}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove mirror: %w", err)
	}
	return nil
}
