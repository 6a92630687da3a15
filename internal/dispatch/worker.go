// Package dispatch decouples command submission from command execution. Any
// number of submitters enqueue init/run/clean commands; exactly one worker
// goroutine consumes them in FIFO order, so at most one registry rebuild or
// orchestration run is ever in progress and all artifact writes happen from
// a single goroutine.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/CyberForgeX/titanoboa/internal/config"
	"github.com/CyberForgeX/titanoboa/internal/registry"
)

// Rebuilder is the registry pipeline the worker drives. registry.Builder
// implements it.
type Rebuilder interface {
	Rebuild(ctx context.Context, root string) (*registry.Registry, registry.Diff, []registry.DirectoryError, error)
	Clean(root string) (int, error)
}

// Executor runs one directory's orchestrator artifact. invoke.Runner
// implements it.
type Executor interface {
	RunDirectory(dir, artifactPath string) (int, error)
}

// Logger matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// State is the worker's lifecycle phase.
type State string

const (
	StateIdle         State = "idle"
	StateProcessing   State = "processing"
	StateShuttingDown State = "shutting-down"
	StateStopped      State = "stopped"
)

// Worker consumes the command queue. It exclusively owns every live registry
// it rebuilds and never processes two commands concurrently.
type Worker struct {
	queue    *Queue
	builder  Rebuilder
	executor Executor
	logger   Logger

	mu        sync.RWMutex
	state     State
	processed atomic.Int64
	done      chan struct{}
	startOnce sync.Once
}

// Option customizes worker construction.
type Option func(*Worker)

// WithLogger injects a logger for per-command progress lines.
func WithLogger(l Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker wires a worker to its pipeline.
func NewWorker(builder Rebuilder, executor Executor, opts ...Option) (*Worker, error) {
	if builder == nil {
		return nil, fmt.Errorf("dispatch: rebuilder is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("dispatch: executor is required")
	}
	w := &Worker{
		queue:    NewQueue(),
		builder:  builder,
		executor: executor,
		logger:   nopLogger{},
		state:    StateIdle,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start launches the consumer goroutine. Subsequent calls are no-ops.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.loop()
	})
}

// State reports the worker's current lifecycle phase.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Processed returns how many commands the worker has completed. The counter
// increases strictly monotonically; increments never overlap because a
// single goroutine performs them.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

// Submit enqueues op for root and returns the channel the result will arrive
// on. It never blocks; ctx is consulted cooperatively between directories
// while the command runs.
func (w *Worker) Submit(ctx context.Context, op Op, root string) (<-chan Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := Command{
		ID:   uuid.New(),
		Op:   op,
		Root: root,
		ctx:  ctx,
		resp: make(chan Result, 1),
	}
	if err := w.queue.Push(cmd); err != nil {
		return nil, err
	}
	return cmd.resp, nil
}

// Do submits op and blocks until the worker responds, giving CLI callers
// synchronous semantics over the serialized queue.
func (w *Worker) Do(ctx context.Context, op Op, root string) (Result, error) {
	resp, err := w.Submit(ctx, op, root)
	if err != nil {
		return Result{}, err
	}
	return <-resp, nil
}

// Shutdown submits the distinguished shutdown command and waits for the
// worker to respond to everything already queued and stop.
func (w *Worker) Shutdown() {
	cmd := Command{ID: uuid.New(), Op: opShutdown, ctx: context.Background(), resp: make(chan Result, 1)}
	if err := w.queue.Push(cmd); err != nil {
		// Already shutting down; just wait for the loop to finish.
		<-w.done
		return
	}
	<-cmd.resp
	<-w.done
}

// Done is closed once the worker has stopped.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) loop() {
	for {
		cmd, ok := w.queue.Pop()
		if !ok {
			break
		}
		if cmd.Op == opShutdown {
			w.setState(StateShuttingDown)
			w.queue.Close()
			cmd.respond(Result{CommandID: cmd.ID, Op: cmd.Op})
			continue
		}
		if w.State() != StateShuttingDown {
			w.setState(StateProcessing)
		}
		res := w.process(cmd)
		w.processed.Add(1)
		cmd.respond(res)
		if w.State() == StateProcessing {
			w.setState(StateIdle)
		}
	}
	w.setState(StateStopped)
	close(w.done)
}

// process executes one command. Failures are reported on the result; the
// worker itself never stops because of them.
func (w *Worker) process(cmd Command) Result {
	res := Result{CommandID: cmd.ID, Op: cmd.Op, Root: cmd.Root}
	w.logger.Printf("dispatch: %s %s (%s)", cmd.Op, cmd.Root, cmd.ID)

	switch cmd.Op {
	case OpClean:
		removed, err := w.builder.Clean(cmd.Root)
		res.Removed = removed
		if err != nil {
			res.Errors = append(res.Errors, registry.DirectoryError{Directory: cmd.Root, Err: err})
		}
		return res
	case OpInit:
		if err := config.InitProjectDir(cmd.Root); err != nil {
			res.Errors = append(res.Errors, registry.DirectoryError{Directory: cmd.Root, Err: err})
			return res
		}
	}

	reg, diff, dirErrs, err := w.builder.Rebuild(cmd.ctx, cmd.Root)
	res.Errors = append(res.Errors, dirErrs...)
	if err != nil {
		res.Errors = append(res.Errors, registry.DirectoryError{Directory: cmd.Root, Err: err})
		return res
	}
	res.Diff = diff
	res.Warnings = reg.Warnings()
	for _, snap := range reg.Directories {
		if snap.Orchestrator != nil && snap.Orchestrator.GeneratedAt == reg.Version {
			res.Regenerated++
		}
	}

	// Directories are independent of one another: an execution failure stops
	// that directory's remaining modules only. Cancellation is cooperative
	// at directory granularity.
	for _, dir := range reg.SortedDirectories() {
		if cmd.ctx.Err() != nil {
			res.Cancelled = true
			w.logger.Printf("dispatch: %s cancelled before %s", cmd.ID, dir)
			break
		}
		snap := reg.Directories[dir]
		if snap.Orchestrator == nil {
			continue
		}
		ran, err := w.executor.RunDirectory(dir, snap.Orchestrator.Path)
		res.ModulesRun += ran
		if err != nil {
			res.Errors = append(res.Errors, registry.DirectoryError{Directory: dir, Err: err})
			continue
		}
		res.DirectoriesRun++
	}
	return res
}
