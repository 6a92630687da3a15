package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/CyberForgeX/titanoboa/internal/generate"
	"github.com/CyberForgeX/titanoboa/internal/invoke"
	"github.com/CyberForgeX/titanoboa/internal/registry"
	"github.com/CyberForgeX/titanoboa/internal/scan"
)

// Op tags an orchestration command.
type Op string

const (
	OpInit  Op = "init"
	OpRun   Op = "run"
	OpClean Op = "clean"

	// opShutdown is the distinguished command that stops the worker after it
	// has responded to everything already queued.
	opShutdown Op = "shutdown"
)

// ErrCancelled marks a run stopped cooperatively between directories.
var ErrCancelled = errors.New("dispatch: cancelled")

// Command travels from a submitter to the worker. Submitters only build
// commands and read results; the live registry stays with the worker.
type Command struct {
	ID   uuid.UUID
	Op   Op
	Root string

	ctx  context.Context
	resp chan Result
}

func (c Command) respond(res Result) {
	if c.resp != nil {
		c.resp <- res
	}
}

// ErrorKind names the failure category a command surfaces to callers.
type ErrorKind string

const (
	KindIO                 ErrorKind = "io"
	KindConventionConflict ErrorKind = "convention-conflict"
	KindGeneration         ErrorKind = "generation"
	KindExecution          ErrorKind = "execution"
	KindCancelled          ErrorKind = "cancelled"
)

// KindOf classifies an error into its kind. Anything unrecognized is an IO
// failure, the only category left once convention, generation, execution,
// and cancellation are ruled out.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, scan.ErrConventionConflict):
		return KindConventionConflict
	case errors.Is(err, generate.ErrGeneration):
		return KindGeneration
	case errors.Is(err, invoke.ErrExecution):
		return KindExecution
	default:
		return KindIO
	}
}

// Result reports one command's outcome back to its submitter.
type Result struct {
	CommandID uuid.UUID     `json:"command_id"`
	Op        Op            `json:"op"`
	Root      string        `json:"root"`
	Diff      registry.Diff `json:"diff"`
	// Regenerated counts orchestrator artifacts rewritten this cycle.
	Regenerated int `json:"regenerated"`
	// Removed counts artifacts deleted by clean.
	Removed        int      `json:"removed"`
	DirectoriesRun int      `json:"directories_run"`
	ModulesRun     int      `json:"modules_run"`
	Warnings       []string `json:"warnings,omitempty"`
	// Errors lists every directory failure; siblings of a failed directory
	// still complete.
	Errors    []registry.DirectoryError `json:"-"`
	Cancelled bool                      `json:"cancelled"`
}

// Failed reports whether the command must surface a non-zero exit.
func (r Result) Failed() bool {
	return len(r.Errors) > 0 || r.Cancelled
}

// First returns the first directory error, or nil.
func (r Result) First() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Dominant names the result's leading error kind: cancellation wins, then
// the first directory error's category.
func (r Result) Dominant() ErrorKind {
	if r.Cancelled {
		return KindCancelled
	}
	if err := r.First(); err != nil {
		return KindOf(err)
	}
	return ""
}
