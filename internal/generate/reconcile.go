// Package generate reconciles a directory snapshot against its orchestrator
// artifact, regenerating the artifact whenever the directory's module set or
// order has drifted. A regenerated artifact always reflects the current
// module set exactly; staleness never survives a reconcile.
package generate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CyberForgeX/titanoboa/internal/convention"
	"github.com/CyberForgeX/titanoboa/internal/scan"
)

// ErrGeneration reports a failed atomic replace. The previous artifact is
// always left intact when this error is returned.
var ErrGeneration = errors.New("artifact replace failed")

// ArtifactOrder recovers the ordered module file list encoded in an existing
// artifact. The invoke runner implements it; an error marks the artifact
// unparseable and therefore stale.
type ArtifactOrder interface {
	ModuleOrder(artifactPath string) ([]string, error)
}

// Logger matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Outcome describes one reconcile decision.
type Outcome struct {
	// Changed is false when the existing artifact already reflects the
	// directory's module set and order.
	Changed bool
	// Descriptor is set when Changed, describing the fresh artifact.
	Descriptor convention.OrchestratorDescriptor
}

// Reconciler decides staleness and rewrites artifacts.
type Reconciler struct {
	renderer Renderer
	order    ArtifactOrder
	ext      string
	logger   Logger
}

// Option customizes reconciler construction.
type Option func(*Reconciler)

// WithRenderer swaps the artifact renderer.
func WithRenderer(r Renderer) Option {
	return func(rec *Reconciler) {
		if r != nil {
			rec.renderer = r
		}
	}
}

// WithLogger injects a logger for regeneration diagnostics.
func WithLogger(l Logger) Option {
	return func(rec *Reconciler) {
		if l != nil {
			rec.logger = l
		}
	}
}

// NewReconciler wires a reconciler to the artifact reader used for staleness
// checks. ext must match the scanner's extension.
func NewReconciler(order ArtifactOrder, ext string, opts ...Option) (*Reconciler, error) {
	if order == nil {
		return nil, fmt.Errorf("generate: artifact order reader is required")
	}
	if ext == "" {
		ext = ".go"
	}
	rec := &Reconciler{
		renderer: GoRenderer{},
		order:    order,
		ext:      ext,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rec)
		}
	}
	return rec, nil
}

// Reconcile compares snapshot against its recorded orchestrator and rewrites
// the artifact when stale. version becomes the new descriptor's logical
// generation. A directory with no modules and no artifact is left untouched.
func (r *Reconciler) Reconcile(snapshot scan.DirectorySnapshot, version int64) (Outcome, error) {
	if r.upToDate(snapshot) {
		return Outcome{}, nil
	}

	orderKey := 1
	if n := len(snapshot.Modules); n > 0 {
		orderKey = snapshot.Modules[n-1].OrderKey + 1
	}
	name := convention.ArtifactName(orderKey, len(snapshot.Modules), r.ext)
	path := filepath.Join(snapshot.Directory, name)

	body, err := r.renderer.Render(snapshot)
	if err != nil {
		return Outcome{}, err
	}

	if err := r.writeAtomic(path, body); err != nil {
		return Outcome{}, err
	}

	// The previous artifact goes only after the new one is safely in place,
	// so a failed write never leaves the directory without an orchestrator.
	if prev := snapshot.Orchestrator; prev != nil && prev.Path != path {
		if err := os.Remove(prev.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Outcome{}, fmt.Errorf("generate: %s: %w: remove previous artifact: %v",
				snapshot.Directory, ErrGeneration, err)
		}
	}
	r.logger.Printf("generate: %s: wrote %s (%d modules)", snapshot.Directory, name, len(snapshot.Modules))

	return Outcome{
		Changed: true,
		Descriptor: convention.OrchestratorDescriptor{
			Directory:   snapshot.Directory,
			Path:        path,
			OrderKey:    orderKey,
			ModuleCount: len(snapshot.Modules),
			GeneratedAt: version,
		},
	}, nil
}

// upToDate reports whether the existing artifact already encodes snapshot's
// module set in the current order.
func (r *Reconciler) upToDate(snapshot scan.DirectorySnapshot) bool {
	existing := snapshot.Orchestrator
	if existing == nil {
		return len(snapshot.Modules) == 0
	}
	if existing.ModuleCount != len(snapshot.Modules) {
		return false
	}
	encoded, err := r.order.ModuleOrder(existing.Path)
	if err != nil {
		// Unparseable artifacts are stale by definition.
		return false
	}
	current := snapshot.FileNames()
	if len(encoded) != len(current) {
		return false
	}
	for i := range encoded {
		if encoded[i] != current[i] {
			return false
		}
	}
	return true
}

// writeAtomic replaces path via a temp file in the same directory so a
// failed write never leaves a partial artifact behind.
func (r *Reconciler) writeAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("generate: %s: %w: %v", dir, ErrGeneration, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("generate: %s: %w: %v", dir, ErrGeneration, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("generate: %s: %w: %v", dir, ErrGeneration, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("generate: %s: %w: %v", dir, ErrGeneration, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("generate: %s: %w: %v", dir, ErrGeneration, err)
	}
	return nil
}
