package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/runtime/orchestrator"
	"github.com/woofnb/woof/runtime/parser"
)

func newRunCmd(log *logrus.Logger) *cobra.Command {
	var cellSelector []string
	var noDeps bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotebook(cmd, log, args[0], nil, cellSelector, noDeps)
		},
	}

	cmd.Flags().StringArrayVar(&cellSelector, "cell", nil, "restrict execution to this cell id (repeatable)")
	cmd.Flags().BoolVar(&noDeps, "no-deps", false, "do not expand --cell to its dependency closure")
	return cmd
}

func newTestCmd(log *logrus.Logger) *cobra.Command {
	var noDeps bool

	cmd := &cobra.Command{
		Use:   "test <file>",
		Short: "Execute a notebook restricted to test cells and their dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			nb, err := parser.Parse(string(source))
			if err != nil {
				return err
			}

			var testCells []string
			for _, c := range nb.Cells {
				if c.Type == model.CellTest {
					testCells = append(testCells, c.ID)
				}
			}
			if len(testCells) == 0 {
				log.WithField("file", path).Debug("no test cells to run")
				return nil
			}

			return runNotebook(cmd, log, path, []byte(source), testCells, noDeps)
		},
	}

	cmd.Flags().BoolVar(&noDeps, "no-deps", false, "do not expand the test-cell set to its dependency closure")
	return cmd
}

func runNotebook(cmd *cobra.Command, log *logrus.Logger, path string, preread []byte, selector []string, noDeps bool) error {
	source := preread
	if source == nil {
		var err error
		source, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := orchestrator.Run(ctx, path, string(source), orchestrator.Options{
		Selector: selector,
		NoDeps:   noDeps,
		Log:      log,
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.CellID, r.Status)
	}

	if orchestrator.Exit(results) != 0 {
		return fmt.Errorf("run: one or more cells did not reach SUCCESS or REPLAYED")
	}
	return nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM, so an
// in-flight cell is terminated via its process group rather than left
// orphaned.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx, cancel
}
