package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yamlweave/internal/config"
	"yamlweave/internal/format"
	"yamlweave/internal/logging"
	"yamlweave/internal/runner"
)

var weaveFlags struct {
	rules      []string
	configPath string
	extensions []string
	exclude    []string
	prefix     string
	parallel   int
	outputDir  string
	stubbed    bool
	noBackup   bool
	reportPath string
	markdown   bool
	watch      bool
}

var weaveCmd = &cobra.Command{
	Use:   "weave <source-tree>",
	Short: "Insert snippets at every anchor comment in a source tree",
	Long: `Walk a source tree, find anchor comments, and insert the matching YAML
snippets below them. Originals are copied into a timestamped backup tree
before the first write.

Usage:
  yamlweave weave src -r rules.yaml
  yamlweave weave src -r base.yaml -r overrides.yaml --parallel 4
  yamlweave weave src -r rules.yaml --output-dir src_stubbed   # leave src untouched
  yamlweave weave src -r rules.yaml --watch                    # re-weave on change

Re-running against an already-woven tree is a no-op; if a snippet changed
in the rules file, its injected block is replaced in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runWeave,
}

func init() {
	f := weaveCmd.Flags()
	f.StringArrayVarP(&weaveFlags.rules, "rules", "r", nil, "Rules file (repeatable; merged in order)")
	f.StringVar(&weaveFlags.configPath, "config", "", "Settings file (YAML/JSON); flags override it")
	f.StringSliceVar(&weaveFlags.extensions, "extensions", nil, "Eligible file suffixes (default .c,.h)")
	f.StringSliceVar(&weaveFlags.exclude, "exclude", nil, "Directory names to skip")
	f.StringVar(&weaveFlags.prefix, "comment-prefix", "", "Line-comment prefix of the host language (default //)")
	f.IntVar(&weaveFlags.parallel, "parallel", 0, "File worker pool size (default 1 = serial)")
	f.StringVar(&weaveFlags.outputDir, "output-dir", "", "Write woven copies here instead of weaving in place")
	f.BoolVar(&weaveFlags.stubbed, "stubbed", false, "Write woven copies to <tree>_stubbed_<timestamp> instead of weaving in place")
	f.BoolVar(&weaveFlags.noBackup, "no-backup", false, "Skip the backup tree on in-place runs")
	f.StringVar(&weaveFlags.reportPath, "report", "", "Write a JSON run report to this path")
	f.BoolVar(&weaveFlags.markdown, "markdown", false, "Render the summary table as Markdown")
	f.BoolVar(&weaveFlags.watch, "watch", false, "Keep running and re-weave when sources or rules change")
}

func runWeave(cmd *cobra.Command, args []string) error {
	if len(weaveFlags.rules) == 0 {
		return fmt.Errorf("at least one rules file is required (-r rules.yaml)")
	}

	settings, err := weaveSettings()
	if err != nil {
		return err
	}

	r, err := runner.New(runner.Options{
		Root:      args[0],
		Rules:     weaveFlags.rules,
		Settings:  *settings,
		OutputDir: weaveFlags.outputDir,
		Stubbed:   weaveFlags.stubbed,
		NoBackup:  weaveFlags.noBackup,
	})
	if err != nil {
		return err
	}

	mode := format.ASCII
	if weaveFlags.markdown {
		mode = format.Markdown
	}

	if weaveFlags.watch {
		log := logging.New("cli")
		log.Info("watching for changes", "root", args[0])
		w := runner.NewWatcher(r, func(report *runner.Report, err error) {
			if err != nil {
				log.Warn("re-run failed", "error", err)
				return
			}
			fmt.Println(report.Render(mode))
			writeReportArtifact(report)
		})
		return w.Watch(cmd.Context())
	}

	report, err := r.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(report.Render(mode))
	if err := writeReportArtifact(report); err != nil {
		return err
	}
	if report.Counts.FilesFailed > 0 || report.Counts.AnchorsFailed > 0 {
		os.Exit(1)
	}
	return nil
}

// weaveSettings merges the optional settings file with the flags; a flag
// explicitly set always wins.
func weaveSettings() (*config.Settings, error) {
	settings := &config.Settings{}
	if weaveFlags.configPath != "" {
		loaded, err := config.LoadFromPath(weaveFlags.configPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	if len(weaveFlags.extensions) > 0 {
		settings.Extensions = weaveFlags.extensions
	}
	if len(weaveFlags.exclude) > 0 {
		settings.Exclude = weaveFlags.exclude
	}
	if weaveFlags.prefix != "" {
		settings.CommentPrefix = weaveFlags.prefix
	}
	if weaveFlags.parallel > 0 {
		settings.Parallel = weaveFlags.parallel
	}
	if err := settings.Normalize(); err != nil {
		return nil, err
	}
	return settings, nil
}

func writeReportArtifact(report *runner.Report) error {
	if weaveFlags.reportPath == "" {
		return nil
	}
	if err := report.WriteJSON(weaveFlags.reportPath); err != nil {
		return err
	}
	fmt.Printf("Report: %s\n", weaveFlags.reportPath)
	return nil
}
