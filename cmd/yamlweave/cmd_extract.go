package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yamlweave/internal/config"
	"yamlweave/internal/runner"
)

var extractFlags struct {
	output     string
	extensions []string
	prefix     string
}

var extractCmd = &cobra.Command{
	Use:   "extract <source-tree>",
	Short: "Harvest injected snippets back into a YAML rules file",
	Long: `Walk a woven tree and rebuild the rules document from the injected
blocks found under each anchor. The inverse of weave: given only the
stubbed sources, it recovers the YAML that produced them.

Usage:
  yamlweave extract src -o recovered.yaml
  yamlweave extract src                      # print to stdout`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractFlags.output, "output", "o", "", "Write the rules document here (default stdout)")
	f.StringSliceVar(&extractFlags.extensions, "extensions", nil, "Eligible file suffixes (default .c,.h)")
	f.StringVar(&extractFlags.prefix, "comment-prefix", "", "Line-comment prefix of the host language (default //)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	res, err := runner.Extract(args[0], config.Settings{
		Extensions:    extractFlags.extensions,
		CommentPrefix: extractFlags.prefix,
	})
	if err != nil {
		return err
	}

	data, err := res.Catalog.Dump()
	if err != nil {
		return err
	}

	if extractFlags.output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(extractFlags.output, data, 0644); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	fmt.Printf("Recovered %d snippet(s) from %d file(s): %s\n",
		res.Catalog.Len(), res.FilesScanned, extractFlags.output)
	return nil
}
