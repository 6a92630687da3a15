package invoke

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const artifactSource = `// Code generated by titanoboa; DO NOT EDIT.

package main

// Modules lists this directory's module files in execution order.
func Modules() []string {
	return []string{
		"1_user.go",
		"2_product.go",
	}
}
`

// moduleSource appends its marker to order.log in the module's directory so
// tests can observe execution order.
func moduleSource(marker string) string {
	return fmt.Sprintf(`package main

import "os"

func Execute() error {
	f, err := os.OpenFile("order.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(%q)
	return err
}
`, marker+"\n")
}

func write(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestModuleOrderReadsArtifact(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "3_orchestrate_2.go", artifactSource)

	files, err := NewRunner("").ModuleOrder(filepath.Join(dir, "3_orchestrate_2.go"))
	if err != nil {
		t.Fatalf("ModuleOrder returned error: %v", err)
	}
	if len(files) != 2 || files[0] != "1_user.go" || files[1] != "2_product.go" {
		t.Fatalf("files = %v", files)
	}
}

func TestModuleOrderRejectsParameterizedModulesFunc(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "3_orchestrate_2.go", `package main

func Modules(n int) []string { return nil }
`)

	files, err := NewRunner("").ModuleOrder(filepath.Join(dir, "3_orchestrate_2.go"))
	if err == nil {
		t.Fatalf("expected an error for Modules(int), got files %v", files)
	}
}

func TestModuleOrderRejectsWrongReturnType(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "3_orchestrate_2.go", `package main

func Modules() int { return 0 }
`)

	if _, err := NewRunner("").ModuleOrder(filepath.Join(dir, "3_orchestrate_2.go")); err == nil {
		t.Fatal("expected an error for a non-[]string Modules()")
	}
}

func TestModuleOrderRejectsArtifactWithoutModulesFunc(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "1_orchestrate_0.go", "package main\n")

	if _, err := NewRunner("").ModuleOrder(filepath.Join(dir, "1_orchestrate_0.go")); err == nil {
		t.Fatal("expected an error for an artifact without Modules()")
	}
}

func TestRunDirectoryExecutesModulesInOrder(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "1_user.go", moduleSource("user"))
	write(t, dir, "2_product.go", moduleSource("product"))
	write(t, dir, "3_orchestrate_2.go", artifactSource)
	chdir(t, dir)

	ran, err := NewRunner("").RunDirectory(dir, filepath.Join(dir, "3_orchestrate_2.go"))
	if err != nil {
		t.Fatalf("RunDirectory returned error: %v", err)
	}
	if ran != 2 {
		t.Fatalf("ran = %d, want 2", ran)
	}
	log, err := os.ReadFile(filepath.Join(dir, "order.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(log) != "user\nproduct\n" {
		t.Fatalf("order.log = %q", log)
	}
}

func TestRunDirectoryStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "1_user.go", `package main

import "errors"

func Execute() error { return errors.New("user exploded") }
`)
	write(t, dir, "2_product.go", moduleSource("product"))
	write(t, dir, "3_orchestrate_2.go", artifactSource)
	chdir(t, dir)

	ran, err := NewRunner("").RunDirectory(dir, filepath.Join(dir, "3_orchestrate_2.go"))
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("err = %v, want ErrExecution", err)
	}
	if ran != 0 {
		t.Fatalf("ran = %d, want 0", ran)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "order.log")); !os.IsNotExist(statErr) {
		t.Fatal("second module ran after the first failed")
	}
}

func TestRunModuleSupportsBareFunc(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "1_noop.go", `package main

func Execute() {}
`)
	if err := NewRunner("").RunModule(filepath.Join(dir, "1_noop.go")); err != nil {
		t.Fatalf("RunModule returned error: %v", err)
	}
}

func TestRunModuleMissingEntrypoint(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "1_bad.go", `package main

func Setup() {}
`)
	err := NewRunner("").RunModule(filepath.Join(dir, "1_bad.go"))
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("err = %v, want ErrExecution", err)
	}
}

func TestRunModuleCustomEntrypoint(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "1_custom.go", `package main

func Boot() error { return nil }
`)
	if err := NewRunner("Boot").RunModule(filepath.Join(dir, "1_custom.go")); err != nil {
		t.Fatalf("RunModule returned error: %v", err)
	}
}
