// Command woof is the CLI front-end for the WOOFNB toolchain: argument
// parsing, help text, and exit-code mapping live here, outside the core
// runtime packages.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd := &cobra.Command{
		Use:           "woof",
		Short:         "Parse, lint, plan, and execute WOOFNB notebooks",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	}

	rootCmd.AddCommand(
		newFmtCmd(log),
		newLintCmd(log),
		newGraphCmd(log),
		newRunCmd(log),
		newTestCmd(log),
		newCleanCmd(log),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
