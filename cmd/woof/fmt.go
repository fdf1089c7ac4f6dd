package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woofnb/woof/runtime/formatter"
	"github.com/woofnb/woof/runtime/parser"
)

func newFmtCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt <file>",
		Short: "Rewrite a notebook in canonical form",
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

			out, err := formatter.Format(nb)
			if err != nil {
				return fmt.Errorf("formatting %s: %w", path, err)
			}

			if out == string(source) {
				log.WithField("file", path).Debug("already formatted")
				return nil
			}

			return os.WriteFile(path, []byte(out), 0o644)
		},
	}
}
