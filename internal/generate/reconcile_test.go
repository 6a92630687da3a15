package generate

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/CyberForgeX/titanoboa/internal/invoke"
	"github.com/CyberForgeX/titanoboa/internal/scan"
)

func newTestReconciler(t *testing.T) *Reconciler {
	t.Helper()
	rec, err := NewReconciler(invoke.NewRunner(""), ".go")
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func writeModules(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		src := "package main\n\nfunc Execute() error { return nil }\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func scanDir(t *testing.T, dir string) scan.DirectorySnapshot {
	t.Helper()
	snap, err := scan.NewScanner(".go").Scan(dir)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	return snap
}

func TestReconcileGeneratesFreshArtifact(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go", "2_product.go")
	rec := newTestReconciler(t)

	outcome, err := rec.Reconcile(scanDir(t, dir), 1)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if !outcome.Changed {
		t.Fatal("expected a regenerated artifact")
	}
	desc := outcome.Descriptor
	if desc.ModuleCount != 2 {
		t.Fatalf("module count = %d, want 2", desc.ModuleCount)
	}
	if desc.OrderKey != 3 {
		t.Fatalf("order key = %d, want max module key + 1 = 3", desc.OrderKey)
	}
	if filepath.Base(desc.Path) != "3_orchestrate_2.go" {
		t.Fatalf("artifact path = %s", desc.Path)
	}
	if desc.GeneratedAt != 1 {
		t.Fatalf("generated at = %d, want 1", desc.GeneratedAt)
	}

	files, err := invoke.NewRunner("").ModuleOrder(desc.Path)
	if err != nil {
		t.Fatalf("read back artifact: %v", err)
	}
	if !reflect.DeepEqual(files, []string{"1_user.go", "2_product.go"}) {
		t.Fatalf("encoded order = %v", files)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go", "2_product.go")
	rec := newTestReconciler(t)

	if outcome, err := rec.Reconcile(scanDir(t, dir), 1); err != nil || !outcome.Changed {
		t.Fatalf("first reconcile: outcome=%+v err=%v", outcome, err)
	}
	// Round trip: a fresh scan of the regenerated directory is unchanged.
	outcome, err := rec.Reconcile(scanDir(t, dir), 2)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if outcome.Changed {
		t.Fatal("second reconcile regenerated an up-to-date artifact")
	}
}

func TestReconcileReplacesStaleArtifact(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go", "2_product.go")
	rec := newTestReconciler(t)
	if _, err := rec.Reconcile(scanDir(t, dir), 1); err != nil {
		t.Fatal(err)
	}

	// Adding a module invalidates both count and order.
	writeModules(t, dir, "3_category.go")
	outcome, err := rec.Reconcile(scanDir(t, dir), 2)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if !outcome.Changed {
		t.Fatal("expected regeneration after adding a module")
	}
	if filepath.Base(outcome.Descriptor.Path) != "4_orchestrate_3.go" {
		t.Fatalf("artifact = %s", outcome.Descriptor.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "3_orchestrate_2.go")); !os.IsNotExist(err) {
		t.Fatal("previous artifact was not removed")
	}
	snap := scanDir(t, dir)
	if snap.Orchestrator == nil || snap.Orchestrator.ModuleCount != 3 {
		t.Fatalf("rescan orchestrator = %+v", snap.Orchestrator)
	}
}

func TestReconcileFailedReplaceKeepsOldArtifact(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go", "2_product.go")
	rec := newTestReconciler(t)
	if _, err := rec.Reconcile(scanDir(t, dir), 1); err != nil {
		t.Fatal(err)
	}
	oldPath := filepath.Join(dir, "3_orchestrate_2.go")
	oldBody, err := os.ReadFile(oldPath)
	if err != nil {
		t.Fatal(err)
	}

	// Adding a module makes the artifact stale; a directory squatting on the
	// new artifact's path makes the rename fail.
	writeModules(t, dir, "3_category.go")
	if err := os.Mkdir(filepath.Join(dir, "4_orchestrate_3.go"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err = rec.Reconcile(scanDir(t, dir), 2)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}
	body, err := os.ReadFile(oldPath)
	if err != nil {
		t.Fatalf("previous artifact lost: %v", err)
	}
	if !reflect.DeepEqual(body, oldBody) {
		t.Fatal("previous artifact was modified by the failed replace")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestReconcileDetectsRenamedModule(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go", "2_product.go")
	rec := newTestReconciler(t)
	if _, err := rec.Reconcile(scanDir(t, dir), 1); err != nil {
		t.Fatal(err)
	}

	// Same keys, same count, different file: the artifact would invoke a
	// module that no longer exists.
	if err := os.Rename(filepath.Join(dir, "1_user.go"), filepath.Join(dir, "1_person.go")); err != nil {
		t.Fatal(err)
	}
	outcome, err := rec.Reconcile(scanDir(t, dir), 2)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if !outcome.Changed {
		t.Fatal("expected regeneration after renaming a module")
	}
}

func TestReconcileTreatsUnparseableArtifactAsStale(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go")
	if err := os.WriteFile(filepath.Join(dir, "2_orchestrate_1.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := newTestReconciler(t)

	outcome, err := rec.Reconcile(scanDir(t, dir), 1)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if !outcome.Changed {
		t.Fatal("expected regeneration of an unparseable artifact")
	}
}

func TestReconcileReplacesHandEditedArtifact(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go")
	// A Modules with parameters cannot be read back; it is stale, not fatal.
	src := "package main\n\nfunc Modules(n int) []string { return nil }\n"
	if err := os.WriteFile(filepath.Join(dir, "2_orchestrate_1.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := newTestReconciler(t)

	outcome, err := rec.Reconcile(scanDir(t, dir), 1)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if !outcome.Changed {
		t.Fatal("expected regeneration of a hand-edited artifact")
	}
	files, err := invoke.NewRunner("").ModuleOrder(outcome.Descriptor.Path)
	if err != nil {
		t.Fatalf("read back regenerated artifact: %v", err)
	}
	if !reflect.DeepEqual(files, []string{"1_user.go"}) {
		t.Fatalf("encoded order = %v", files)
	}
}

func TestReconcileEmptyDirectoryIsUnchanged(t *testing.T) {
	dir := t.TempDir()
	rec := newTestReconciler(t)

	outcome, err := rec.Reconcile(scanDir(t, dir), 1)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if outcome.Changed {
		t.Fatal("empty directory must be left untouched")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("artifact written into an empty directory: %v", entries)
	}
}

func TestReconcileEmptiedDirectoryKeepsArtifactCurrent(t *testing.T) {
	dir := t.TempDir()
	writeModules(t, dir, "1_user.go")
	rec := newTestReconciler(t)
	if _, err := rec.Reconcile(scanDir(t, dir), 1); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "1_user.go")); err != nil {
		t.Fatal(err)
	}
	outcome, err := rec.Reconcile(scanDir(t, dir), 2)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if !outcome.Changed {
		t.Fatal("expected regeneration after the last module was removed")
	}
	if outcome.Descriptor.OrderKey != 1 || outcome.Descriptor.ModuleCount != 0 {
		t.Fatalf("descriptor = %+v, want order key 1 and zero modules", outcome.Descriptor)
	}
}
