package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yamlweave/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "yamlweave",
	Short: "Weave YAML-configured code snippets into source trees",
	Long: "yamlweave scans source files for anchor comments (// TC001 STEP1 segment1)\n" +
		"and inserts the matching snippets from a YAML rules file below each one.\n" +
		"Injected lines carry a trailing sentinel, so re-runs are idempotent and\n" +
		"every weave can be undone from its backup tree.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(weaveCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
