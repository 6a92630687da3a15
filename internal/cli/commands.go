package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CyberForgeX/titanoboa/internal/dispatch"
)

func newInitCmd(rootFn func() (string, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold .titanoboa, generate orchestrators, and run all modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootFn()
			if err != nil {
				return err
			}
			return dispatchOne(dispatch.OpInit, root, outputFn())
		},
	}
}

func newRunCmd(rootFn func() (string, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Rebuild the registry and execute every directory's orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootFn()
			if err != nil {
				return err
			}
			return dispatchOne(dispatch.OpRun, root, outputFn())
		},
	}
}

func newCleanCmd(rootFn func() (string, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove generated orchestrator artifacts and the saved registry state",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootFn()
			if err != nil {
				return err
			}
			return dispatchOne(dispatch.OpClean, root, outputFn())
		},
	}
}

func newListCmd(rootFn func() (string, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the discovered modules and orchestrators without generating or running",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootFn()
			if err != nil {
				return err
			}
			out := outputFn()

			s, err := buildStack(root)
			if err != nil {
				return err
			}
			defer s.close()

			reg, dirErrs, err := s.builder.Snapshot(context.Background(), root)
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(reg)
			} else {
				headers := []string{"DIRECTORY", "KEY", "MODULE", "ORCHESTRATOR"}
				var rows [][]string
				for _, dir := range reg.SortedDirectories() {
					snap := reg.Directories[dir]
					artifact := ""
					if snap.Orchestrator != nil {
						artifact = filepath.Base(snap.Orchestrator.Path)
					}
					for i, mod := range snap.Modules {
						row := []string{dir, strconv.Itoa(mod.OrderKey), mod.Name, ""}
						if i == 0 {
							row[3] = artifact
						}
						rows = append(rows, row)
					}
					if len(snap.Modules) == 0 && artifact != "" {
						rows = append(rows, []string{dir, "", "", artifact})
					}
				}
				out.Table(headers, rows)
			}

			for _, w := range reg.Warnings() {
				out.Warn("warning: " + w)
			}
			for _, dirErr := range dirErrs {
				out.Error(dirErr.Error())
			}
			if len(dirErrs) > 0 {
				return fmt.Errorf("%s: list found %d conflicted director(ies)", root, len(dirErrs))
			}
			return nil
		},
	}
}
