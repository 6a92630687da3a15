// Package cli implements the titanoboa command tree. Every command resolves
// a project root, assembles the scan/generate/dispatch pipeline for it, and
// submits exactly one command to the worker queue.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CyberForgeX/titanoboa/internal/config"
	"github.com/CyberForgeX/titanoboa/internal/dispatch"
	"github.com/CyberForgeX/titanoboa/internal/generate"
	"github.com/CyberForgeX/titanoboa/internal/invoke"
	"github.com/CyberForgeX/titanoboa/internal/logging"
	"github.com/CyberForgeX/titanoboa/internal/registry"
	"github.com/CyberForgeX/titanoboa/internal/scan"
)

// NewRootCmd builds the titanoboa command tree.
func NewRootCmd(version string) *cobra.Command {
	var dir string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:   "titanoboa",
		Short: "Convention-driven module orchestration",
		Long: `Titanoboa scans a project tree for <orderKey>_<identifier> module files,
generates one <orderKey>_orchestrate_<moduleCount> artifact per directory,
and executes modules in ascending order key order.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "C", ".", "Project root to orchestrate")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootFn := func() (string, error) { return resolveRoot(dir) }
	outputFn := func() *Output { return NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		newInitCmd(rootFn, outputFn),
		newRunCmd(rootFn, outputFn),
		newCleanCmd(rootFn, outputFn),
		newListCmd(rootFn, outputFn),
	)

	return rootCmd
}

// stack is one project's fully wired pipeline.
type stack struct {
	builder *registry.Builder
	worker  *dispatch.Worker
	logger  *logging.Logger
}

// buildStack loads the project configuration and wires scanner, reconciler,
// registry builder, module runner, and worker around it. The file logger is
// optional: a project that has never been initialized has no .titanoboa yet,
// and init itself will create it.
func buildStack(root string) (*stack, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	var logger *logging.Logger
	if _, statErr := os.Stat(cfg.ProjectDir); statErr == nil {
		logger, err = logging.New(root)
		if err != nil {
			return nil, err
		}
	}

	runner := invoke.NewRunner(cfg.Entrypoint(), invoke.WithLogger(logger))
	reconciler, err := generate.NewReconciler(runner, cfg.Extension(), generate.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	builder, err := registry.NewBuilder(
		scan.NewScanner(cfg.Extension()),
		reconciler,
		registry.WithIgnore(cfg.Ignore()...),
		registry.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	worker, err := dispatch.NewWorker(builder, runner, dispatch.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &stack{builder: builder, worker: worker, logger: logger}, nil
}

func (s *stack) close() {
	s.logger.Close()
}

// dispatchOne runs a single command through the worker lifecycle: start,
// submit, wait, drain. Ctrl-C cancels cooperatively between directories
// instead of killing a module mid-write.
func dispatchOne(op dispatch.Op, root string, out *Output) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := buildStack(root)
	if err != nil {
		return err
	}
	defer s.close()

	s.worker.Start()
	res, err := s.worker.Do(ctx, op, root)
	s.worker.Shutdown()
	if err != nil {
		return err
	}

	// Init may have just created .titanoboa; reopen the log so the command
	// that scaffolded the project is also the first entry in its log.
	if op == dispatch.OpInit && s.logger == nil {
		if logger, logErr := logging.New(root); logErr == nil {
			logger.Printf("dispatch: init %s (%s)", root, res.CommandID)
			logger.Close()
		}
	}

	out.Result(res)
	if res.Failed() {
		return fmt.Errorf("%s: %s failed", root, op)
	}
	return nil
}
