package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"yamlweave/internal/display"
	"yamlweave/internal/format"
	"yamlweave/internal/marker"
	"yamlweave/internal/weave"
)

// FileStatus classifies the outcome for one file in a run.
type FileStatus string

const (
	FileWoven     FileStatus = "woven"
	FileUnchanged FileStatus = "unchanged"
	FileFailed    FileStatus = "failed"
)

// FileReport is one file's outcome, including every anchor found in it.
type FileReport struct {
	Path    string         `json:"path"`
	Status  FileStatus     `json:"status"`
	Reason  string         `json:"reason,omitempty"`
	Anchors []weave.Result `json:"anchors,omitempty"`
}

// Counts aggregates a run's outcomes.
type Counts struct {
	FilesScanned  int `json:"files_scanned"`
	FilesWoven    int `json:"files_woven"`
	FilesFailed   int `json:"files_failed"`
	Anchors       int `json:"anchors"`
	Inserted      int `json:"inserted"`
	Replaced      int `json:"replaced"`
	AlreadyWoven  int `json:"already_woven"`
	NoSnippet     int `json:"no_snippet"`
	AnchorsFailed int `json:"anchors_failed"`
}

// Report is the full record of one weave run.
type Report struct {
	Root      string        `json:"root"`
	Rules     []string      `json:"rules"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration_ns"`
	BackupDir string        `json:"backup_dir,omitempty"`
	OutputDir string        `json:"output_dir,omitempty"`
	Counts    Counts        `json:"counts"`
	Files     []FileReport  `json:"files"`
	// UnusedKeys are catalog snippets no anchor in the tree asked for,
	// usually a typo on one side or the other.
	UnusedKeys []marker.Key `json:"unused_keys,omitempty"`
}

func tally(files []FileReport) Counts {
	var c Counts
	c.FilesScanned = len(files)
	for _, f := range files {
		switch f.Status {
		case FileWoven:
			c.FilesWoven++
		case FileFailed:
			c.FilesFailed++
		}
		for _, a := range f.Anchors {
			c.Anchors++
			switch a.Status {
			case weave.StatusInserted:
				c.Inserted++
			case weave.StatusReplaced:
				c.Replaced++
			case weave.StatusAlreadyWoven:
				c.AlreadyWoven++
			case weave.StatusSkippedNoRule:
				c.NoSnippet++
			case weave.StatusFailed:
				c.AnchorsFailed++
			}
		}
	}
	return c
}

// MissingSnippets returns the unique anchor keys that had no catalog
// binding, sorted. These are the anchors still waiting for a rule.
func (r *Report) MissingSnippets() []marker.Key {
	seen := make(map[marker.Key]bool)
	var out []marker.Key
	for _, f := range r.Files {
		for _, a := range f.Anchors {
			if a.Status == weave.StatusSkippedNoRule && !seen[a.Key] {
				seen[a.Key] = true
				out = append(out, a.Key)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Render produces the human-readable run summary: a per-file table, the
// totals, and the loose ends (missing snippets, unused keys, failures).
func (r *Report) Render(mode format.Mode) string {
	var b strings.Builder

	tb := format.NewTable(mode)
	tb.Header("File", "Status", "Inserted", "Replaced", "Skipped", "Failed")
	for _, f := range r.Files {
		if len(f.Anchors) == 0 && f.Status == FileUnchanged {
			continue
		}
		var ins, rep, skip, fail int
		for _, a := range f.Anchors {
			switch a.Status {
			case weave.StatusInserted:
				ins++
			case weave.StatusReplaced:
				rep++
			case weave.StatusAlreadyWoven, weave.StatusSkippedNoRule:
				skip++
			case weave.StatusFailed:
				fail++
			}
		}
		tb.Row(f.Path, display.FileStatus(string(f.Status)), ins, rep, skip, fail)
	}
	c := r.Counts
	tb.Footer("TOTAL", "", c.Inserted, c.Replaced, c.AlreadyWoven+c.NoSnippet, c.AnchorsFailed)
	tb.Columns(
		format.ColumnConfig{Number: 3, Right: true},
		format.ColumnConfig{Number: 4, Right: true},
		format.ColumnConfig{Number: 5, Right: true},
		format.ColumnConfig{Number: 6, Right: true},
	)
	b.WriteString(tb.String())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%d %s scanned, %d woven, %d failed in %s\n",
		c.FilesScanned, format.Plural(c.FilesScanned, "file", "files"),
		c.FilesWoven, c.FilesFailed, format.FmtDuration(r.Duration))
	if r.BackupDir != "" {
		fmt.Fprintf(&b, "Backup: %s\n", r.BackupDir)
	}
	if r.OutputDir != "" {
		fmt.Fprintf(&b, "Output: %s\n", r.OutputDir)
	}

	if missing := r.MissingSnippets(); len(missing) > 0 {
		fmt.Fprintf(&b, "\nAnchors without snippets (%d):\n", len(missing))
		for _, k := range missing {
			fmt.Fprintf(&b, "  %s\n", display.Anchor(k.TestCase, k.Step, k.Segment))
		}
	}
	if len(r.UnusedKeys) > 0 {
		fmt.Fprintf(&b, "\nSnippets never anchored (%d):\n", len(r.UnusedKeys))
		for _, k := range r.UnusedKeys {
			fmt.Fprintf(&b, "  %s\n", display.Anchor(k.TestCase, k.Step, k.Segment))
		}
	}
	for _, f := range r.Files {
		for _, a := range f.Anchors {
			if a.Status == weave.StatusFailed {
				fmt.Fprintf(&b, "\nFAILED %s:%d %s: %s\n", f.Path, a.Line,
					display.Anchor(a.Key.TestCase, a.Key.Step, a.Key.Segment), a.Reason)
			}
		}
		if f.Status == FileFailed && f.Reason != "" {
			fmt.Fprintf(&b, "\nFAILED %s: %s\n", f.Path, f.Reason)
		}
	}

	return b.String()
}

// WriteJSON persists the report as a machine-readable artifact.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
