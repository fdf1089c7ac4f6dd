package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woofnb/woof/runtime/lint"
	"github.com/woofnb/woof/runtime/parser"
)

func newLintCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file>",
		Short: "Print diagnostics for a notebook",
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

			diags := lint.Lint(nb)
			for _, d := range diags {
				if d.CellID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s [%s]: %s\n", d.Severity, d.CellID, d.Code, d.Message)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]: %s\n", d.Severity, d.Code, d.Message)
				}
			}

			if lint.HasError(diags) {
				log.WithField("file", path).Debug("lint found error-severity diagnostics")
				return fmt.Errorf("lint: %s has error-severity diagnostics", path)
			}
			return nil
		},
	}
}
