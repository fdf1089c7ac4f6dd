package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woofnb/woof/core/model"
	"github.com/woofnb/woof/runtime/parser"
	"github.com/woofnb/woof/runtime/planner"
)

func newGraphCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <file>",
		Short: "Print executable cells as id -> [deps...] in topo order",
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

			// Print in topological order whatever the notebook's own
			// execution order is.
			nb.Header.View.Execution.Order = model.OrderGraph
			cells, err := planner.Plan(nb, planner.Options{})
			if err != nil {
				return err
			}

			for _, c := range cells {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> [%s]\n", c.ID, strings.Join(c.Deps, ", "))
			}
			log.WithField("file", path).WithField("cells", len(cells)).Debug("graph printed")
			return nil
		},
	}
}
