// Package registry maintains the per-project snapshot of every directory's
// modules and orchestrators. A registry is rebuilt from scratch on each
// init/run, diffed against the persisted previous snapshot, and torn down by
// clean. The orchestration worker is its only owner; nothing else mutates it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/CyberForgeX/titanoboa/internal/convention"
	"github.com/CyberForgeX/titanoboa/internal/generate"
	"github.com/CyberForgeX/titanoboa/internal/scan"
)

// Registry is the in-memory snapshot of one project root.
type Registry struct {
	Root string `json:"root"`
	// Version is the logical generation counter, monotonic across rebuilds
	// of the same project.
	Version     int64                             `json:"version"`
	Directories map[string]scan.DirectorySnapshot `json:"directories"`
}

// SortedDirectories returns the registry's directory paths in lexical order.
// Sibling directories are independent; the order only makes runs and reports
// deterministic.
func (r *Registry) SortedDirectories() []string {
	if r == nil {
		return nil
	}
	dirs := make([]string, 0, len(r.Directories))
	for dir := range r.Directories {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Warnings collects every directory's naming-convention warnings.
func (r *Registry) Warnings() []string {
	var warnings []string
	for _, dir := range r.SortedDirectories() {
		warnings = append(warnings, r.Directories[dir].Warnings...)
	}
	return warnings
}

// DirectoryError ties a reconciliation failure to the directory it aborted.
// Sibling directories proceed regardless.
type DirectoryError struct {
	Directory string
	Err       error
}

func (e DirectoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Directory, e.Err)
}

func (e DirectoryError) Unwrap() error { return e.Err }

// Logger matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Builder rebuilds, cleans, and persists registries for project roots.
type Builder struct {
	scanner    *scan.Scanner
	reconciler *generate.Reconciler
	ignore     map[string]struct{}
	logger     Logger
}

// Option customizes builder construction.
type Option func(*Builder)

// WithIgnore sets the directory base names excluded from the walk.
func WithIgnore(names ...string) Option {
	return func(b *Builder) {
		b.ignore = make(map[string]struct{}, len(names))
		for _, name := range names {
			b.ignore[name] = struct{}{}
		}
	}
}

// WithLogger injects a logger for rebuild diagnostics.
func WithLogger(l Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder wires a builder to its scanner and reconciler.
func NewBuilder(scanner *scan.Scanner, reconciler *generate.Reconciler, opts ...Option) (*Builder, error) {
	if scanner == nil {
		return nil, fmt.Errorf("registry: scanner is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("registry: reconciler is required")
	}
	b := &Builder{
		scanner:    scanner,
		reconciler: reconciler,
		ignore:     map[string]struct{}{},
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// Rebuild scans every directory under root, regenerates stale orchestrators,
// persists the new snapshot, and reports the diff against the previous one.
// Per-directory failures abort only that directory; the returned slice lists
// them all. The returned error is fatal (unreadable root, unwritable state).
func (b *Builder) Rebuild(ctx context.Context, root string) (*Registry, Diff, []DirectoryError, error) {
	store := NewStore(root)
	prev, err := store.Load()
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		// A corrupt state file costs the diff, not the run.
		b.logger.Printf("registry: discarding unreadable state for %s: %v", root, err)
		prev = nil
	}
	version := int64(1)
	if prev != nil {
		version = prev.Version + 1
	}

	reg, dirErrs, err := b.build(ctx, root, version, true)
	if err != nil {
		return nil, Diff{}, dirErrs, err
	}
	if err := store.Save(reg); err != nil {
		return nil, Diff{}, dirErrs, fmt.Errorf("registry: persist snapshot: %w", err)
	}
	return reg, ComputeDiff(prev, reg), dirErrs, nil
}

// Snapshot scans root without touching any artifact. Used by read-only
// listings.
func (b *Builder) Snapshot(ctx context.Context, root string) (*Registry, []DirectoryError, error) {
	reg, dirErrs, err := b.build(ctx, root, 0, false)
	return reg, dirErrs, err
}

func (b *Builder) build(ctx context.Context, root string, version int64, reconcile bool) (*Registry, []DirectoryError, error) {
	dirs, walkErrs, err := b.collectDirectories(root)
	if err != nil {
		return nil, walkErrs, err
	}

	// Scans are read-only, so independent sibling directories run
	// concurrently; all writes below stay on the calling goroutine.
	snapshots := make([]*scan.DirectorySnapshot, len(dirs))
	scanErrs := make([]error, len(dirs))
	g, _ := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			snap, err := b.scanner.Scan(dir)
			if err != nil {
				scanErrs[i] = err
				return nil
			}
			snapshots[i] = &snap
			return nil
		})
	}
	_ = g.Wait()

	reg := &Registry{Root: root, Version: version, Directories: map[string]scan.DirectorySnapshot{}}
	dirErrs := walkErrs
	for i, dir := range dirs {
		if scanErrs[i] != nil {
			dirErrs = append(dirErrs, DirectoryError{Directory: dir, Err: scanErrs[i]})
			continue
		}
		snap := *snapshots[i]
		if reconcile {
			outcome, err := b.reconciler.Reconcile(snap, version)
			if err != nil {
				dirErrs = append(dirErrs, DirectoryError{Directory: dir, Err: err})
				continue
			}
			if outcome.Changed {
				desc := outcome.Descriptor
				snap.Orchestrator = &desc
			}
		}
		reg.Directories[dir] = snap
	}
	return reg, dirErrs, nil
}

// collectDirectories walks root depth-first, skipping ignored names.
func (b *Builder) collectDirectories(root string) ([]string, []DirectoryError, error) {
	var dirs []string
	var dirErrs []DirectoryError
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("registry: walk %s: %w", root, err)
			}
			dirErrs = append(dirErrs, DirectoryError{Directory: path, Err: err})
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := b.ignore[d.Name()]; skip && path != root {
			return fs.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, dirErrs, err
	}
	return dirs, dirErrs, nil
}

// Clean removes every orchestrator artifact under root and the persisted
// state, never touching ordinary modules. It returns the number of artifacts
// removed; removal failures are joined but do not stop the sweep.
func (b *Builder) Clean(root string) (int, error) {
	removed := 0
	var failures []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("registry: walk %s: %w", root, err)
			}
			failures = append(failures, DirectoryError{Directory: path, Err: err})
			return fs.SkipDir
		}
		if d.IsDir() {
			if _, skip := b.ignore[d.Name()]; skip && path != root {
				return fs.SkipDir
			}
			return nil
		}
		c := convention.Parse(d.Name(), b.scanner.Ext())
		if c.Kind != convention.KindOrchestrator {
			return nil
		}
		if err := os.Remove(path); err != nil {
			failures = append(failures, fmt.Errorf("registry: remove %s: %w", path, err))
			return nil
		}
		removed++
		b.logger.Printf("registry: removed %s", path)
		return nil
	})
	if err != nil {
		return removed, err
	}
	if resetErr := NewStore(root).Reset(); resetErr != nil {
		failures = append(failures, resetErr)
	}
	return removed, errors.Join(failures...)
}
