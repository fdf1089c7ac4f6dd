package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woofnb/woof/runtime/cache"
	"github.com/woofnb/woof/runtime/sidecar"
)

func newCleanCmd(log *logrus.Logger) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean [file]",
		Short: "Remove a notebook's sidecar output and cache directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if len(args) != 0 {
					return fmt.Errorf("clean: --all takes no file argument")
				}
				matches, err := filepath.Glob("*.woofnb")
				if err != nil {
					return err
				}
				for _, path := range matches {
					if err := cleanOne(log, path); err != nil {
						return err
					}
				}
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("clean: expected a file argument, or --all")
			}
			return cleanOne(log, args[0])
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "clean every *.woofnb notebook in the current directory")
	return cmd
}

func cleanOne(log *logrus.Logger, path string) error {
	if err := sidecar.Clean(path); err != nil {
		return fmt.Errorf("cleaning sidecar for %s: %w", path, err)
	}
	if err := cache.Open(path).Clean(); err != nil {
		return fmt.Errorf("cleaning cache for %s: %w", path, err)
	}
	log.WithField("file", path).Debug("cleaned sidecar and cache")
	return nil
}
