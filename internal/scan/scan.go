// Package scan enumerates one directory at a time and classifies its entries
// against the naming convention, producing an ordered DirectorySnapshot.
// Recursion over subdirectories is the registry's job, not the scanner's.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/CyberForgeX/titanoboa/internal/convention"
)

// ErrConventionConflict reports an ambiguous directory: duplicate module
// order keys or more than one orchestrator-pattern file.
var ErrConventionConflict = errors.New("convention conflict")

// DirectorySnapshot is the result of scanning one directory. It is owned by
// the scan that produced it until handed to the registry.
type DirectorySnapshot struct {
	Directory string `json:"directory"`
	// Modules is sorted by ascending order key, name-stable on equal keys.
	Modules      []convention.ModuleDescriptor      `json:"modules,omitempty"`
	Orchestrator *convention.OrchestratorDescriptor `json:"orchestrator,omitempty"`
	// Warnings carries non-fatal naming-convention flags.
	Warnings []string `json:"warnings,omitempty"`
}

// OrderKeys returns the module order keys in snapshot order.
func (s DirectorySnapshot) OrderKeys() []int {
	keys := make([]int, len(s.Modules))
	for i, m := range s.Modules {
		keys[i] = m.OrderKey
	}
	return keys
}

// FileNames returns the module file base names in snapshot order.
func (s DirectorySnapshot) FileNames() []string {
	names := make([]string, len(s.Modules))
	for i, m := range s.Modules {
		names[i] = filepath.Base(m.Path)
	}
	return names
}

// Scanner classifies directory entries for one file extension.
type Scanner struct {
	ext string
}

// NewScanner returns a scanner for module files carrying ext (".go" when
// empty).
func NewScanner(ext string) *Scanner {
	if ext == "" {
		ext = ".go"
	}
	return &Scanner{ext: ext}
}

// Ext reports the extension the scanner matches against.
func (s *Scanner) Ext() string { return s.ext }

// Scan enumerates dir's direct entries and builds its snapshot. It fails
// when the directory is unreadable, when two files match the orchestrator
// pattern, or when two modules share an order key.
func (s *Scanner) Scan(dir string) (DirectorySnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return DirectorySnapshot{}, fmt.Errorf("scan: read %s: %w", dir, err)
	}
	snapshot := DirectorySnapshot{Directory: dir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		c := convention.Parse(entry.Name(), s.ext)
		if c.Warning != "" {
			snapshot.Warnings = append(snapshot.Warnings, c.Warning)
		}
		switch c.Kind {
		case convention.KindModule:
			snapshot.Modules = append(snapshot.Modules, convention.ModuleDescriptor{
				Path:      filepath.Join(dir, entry.Name()),
				Directory: dir,
				OrderKey:  c.OrderKey,
				Name:      c.Name,
			})
		case convention.KindOrchestrator:
			if snapshot.Orchestrator != nil {
				return DirectorySnapshot{}, fmt.Errorf(
					"scan: %s: %w: both %s and %s match the orchestrator pattern",
					dir, ErrConventionConflict, filepath.Base(snapshot.Orchestrator.Path), entry.Name())
			}
			snapshot.Orchestrator = &convention.OrchestratorDescriptor{
				Directory:   dir,
				Path:        filepath.Join(dir, entry.Name()),
				OrderKey:    c.OrderKey,
				ModuleCount: c.ModuleCount,
			}
		}
	}
	sort.SliceStable(snapshot.Modules, func(i, j int) bool {
		a, b := snapshot.Modules[i], snapshot.Modules[j]
		if a.OrderKey != b.OrderKey {
			return a.OrderKey < b.OrderKey
		}
		return a.Name < b.Name
	})
	for i := 1; i < len(snapshot.Modules); i++ {
		prev, cur := snapshot.Modules[i-1], snapshot.Modules[i]
		if prev.OrderKey == cur.OrderKey {
			return DirectorySnapshot{}, fmt.Errorf(
				"scan: %s: %w: modules %s and %s share order key %d",
				dir, ErrConventionConflict, prev.Name, cur.Name, cur.OrderKey)
		}
	}
	return snapshot, nil
}
