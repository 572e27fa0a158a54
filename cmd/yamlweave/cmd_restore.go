package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yamlweave/internal/backup"
	"yamlweave/internal/display"
)

var restoreFlags struct {
	force bool
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-dir>",
	Short: "Put pristine sources back from a backup tree",
	Long: `Restore every file recorded in a backup tree's manifest over the live
source tree.

Before overwriting, each live file is checked against the woven output
recorded at weave time. A file that was edited by hand since the weave is
skipped, so restore never silently discards work; pass --force to
overwrite anyway.

Usage:
  yamlweave restore src_backup_20250521_095312
  yamlweave restore src_backup_20250521_095312 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreFlags.force, "force", false, "Overwrite files modified by hand since the weave")
}

func runRestore(cmd *cobra.Command, args []string) error {
	set, err := backup.LoadSet(args[0])
	if err != nil {
		return err
	}

	results := set.Restore(restoreFlags.force)
	var restored, skipped, failed int
	for _, res := range results {
		switch res.Status {
		case backup.RestoreDone:
			restored++
		case backup.RestoreSkipped:
			skipped++
			fmt.Printf("%-20s %s: %s\n", display.RestoreStatus(string(res.Status)), res.Path, res.Reason)
		case backup.RestoreFailed:
			failed++
			fmt.Fprintf(os.Stderr, "%-20s %s: %s\n", display.RestoreStatus(string(res.Status)), res.Path, res.Reason)
		}
	}

	fmt.Printf("Restored %d, skipped %d, failed %d (of %d recorded)\n",
		restored, skipped, failed, len(results))
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}
