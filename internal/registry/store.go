package registry

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrStateNotFound is returned when no persisted registry snapshot exists
// yet for a project.
var ErrStateNotFound = errors.New("registry: state not found")

// stateFile lives under <root>/.titanoboa/state/. The directory name is kept
// in sync with the config package's project scaffold.
const (
	projectDirName = ".titanoboa"
	stateFileName  = "registry.json"
)

// Store persists the last registry snapshot so the next rebuild can diff
// against it and continue the generation counter.
type Store struct {
	path string
}

// NewStore creates a store rooted at the project's state directory.
func NewStore(root string) *Store {
	return &Store{path: filepath.Join(root, projectDirName, "state", stateFileName)}
}

// Load reads the persisted snapshot if present.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Save writes the snapshot to disk.
func (s *Store) Save(reg *Registry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, append(encoded, '\n'), 0o644)
}

// Reset discards the persisted snapshot. A missing file is not an error.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
