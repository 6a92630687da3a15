// Package invoke executes module files and reads generated orchestrator
// artifacts through the yaegi interpreter. Every file is evaluated in a
// fresh interpreter so modules cannot leak state into one another.
package invoke

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	// DefaultEntrypoint is the function every module file must export.
	DefaultEntrypoint = "Execute"

	// artifactFuncName is declared by generated orchestrator artifacts and
	// returns the ordered module file list.
	artifactFuncName = "Modules"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ErrExecution reports a module or orchestrator invocation failure during a
// run. It covers interpreter errors, missing entrypoints, returned errors,
// and panics raised by interpreted code.
var ErrExecution = errors.New("module execution failed")

// Logger matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Runner interprets module files and orchestrator artifacts.
type Runner struct {
	entrypoint string
	logger     Logger
}

// Option customizes runner construction.
type Option func(*Runner)

// WithLogger injects a logger for per-module progress lines.
func WithLogger(l Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner builds a runner invoking entrypoint on each module file
// (DefaultEntrypoint when empty).
func NewRunner(entrypoint string, opts ...Option) *Runner {
	if strings.TrimSpace(entrypoint) == "" {
		entrypoint = DefaultEntrypoint
	}
	r := &Runner{entrypoint: entrypoint, logger: nopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ModuleOrder evaluates the artifact at artifactPath and returns the ordered
// module file names its Modules() function declares. A hand-edited artifact
// whose Modules has the wrong shape is an error, never a crash; the caller
// treats it as stale or failed.
func (r *Runner) ModuleOrder(artifactPath string) (files []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			files = nil
			err = fmt.Errorf("invoke: artifact %s: panic: %v", artifactPath, rec)
		}
	}()
	fn, err := evalFunc(artifactPath, artifactFuncName)
	if err != nil {
		return nil, fmt.Errorf("invoke: artifact %s: %w", artifactPath, err)
	}
	if ft := fn.Type(); ft.NumIn() != 0 || ft.NumOut() != 1 {
		return nil, fmt.Errorf("invoke: artifact %s: %s must be func() []string", artifactPath, artifactFuncName)
	}
	results := fn.Call(nil)
	files, ok := results[0].Interface().([]string)
	if !ok {
		return nil, fmt.Errorf("invoke: artifact %s: %s must return []string", artifactPath, artifactFuncName)
	}
	return files, nil
}

// RunModule interprets the module file at path and calls its entrypoint.
// Supported signatures are func() and func() error.
func (r *Runner) RunModule(path string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("invoke: %s: %w: panic: %v", path, ErrExecution, rec)
		}
	}()
	fn, evalErr := evalFunc(path, r.entrypoint)
	if evalErr != nil {
		return fmt.Errorf("invoke: %s: %w: %v", path, ErrExecution, evalErr)
	}
	results := fn.Call(nil)
	if len(results) > 1 {
		return fmt.Errorf("invoke: %s: %w: %s must be func() or func() error", path, ErrExecution, r.entrypoint)
	}
	if len(results) == 1 {
		rv := results[0]
		if rv.Kind() != reflect.Interface || !rv.Type().Implements(errorType) {
			return fmt.Errorf("invoke: %s: %w: %s returned a non-error value", path, ErrExecution, r.entrypoint)
		}
		if !rv.IsNil() {
			return fmt.Errorf("invoke: %s: %w: %v", path, ErrExecution, rv.Interface().(error))
		}
	}
	r.logger.Printf("invoke: ran %s", path)
	return nil
}

// RunDirectory executes dir's orchestrator artifact: every module file the
// artifact lists, in the artifact's order, stopping the directory at the
// first failure. It returns how many modules ran.
func (r *Runner) RunDirectory(dir, artifactPath string) (int, error) {
	files, err := r.ModuleOrder(artifactPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExecution, err)
	}
	ran := 0
	for _, file := range files {
		if err := r.RunModule(filepath.Join(dir, file)); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

// evalFunc interprets the file at path and resolves the named top-level
// function.
func evalFunc(path, name string) (reflect.Value, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("read: %w", err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return reflect.Value{}, fmt.Errorf("file is empty")
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return reflect.Value{}, fmt.Errorf("interpreter symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return reflect.Value{}, fmt.Errorf("interpret: %w", err)
	}
	value, err := i.Eval(name)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("missing %s(): %w", name, err)
	}
	if !value.IsValid() || value.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("%s is not a function", name)
	}
	return value, nil
}
