// Package runner coordinates a weave run end to end: walk the source tree,
// scan each eligible file for anchors, apply the catalog, back up originals,
// and write the woven output. Per-file work runs in an errgroup pool; one
// broken file never aborts the rest of the run.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"yamlweave/internal/backup"
	"yamlweave/internal/catalog"
	"yamlweave/internal/config"
	"yamlweave/internal/logging"
	"yamlweave/internal/marker"
	"yamlweave/internal/weave"
)

// Options selects what one run does. Root and Rules are required.
type Options struct {
	Root     string          // source tree to weave
	Rules    []string        // rules file paths, merged in order
	Settings config.Settings // extensions, comment prefix, pool size

	// OutputDir, when set, writes woven copies there and leaves the live
	// tree untouched (no backup is taken). Empty means weave in place,
	// snapshotting each file before its first write.
	OutputDir string

	// Stubbed picks a default output tree of <root>_stubbed_<timestamp>
	// when OutputDir is empty.
	Stubbed bool

	// NoBackup skips the backup tree on in-place runs. Re-runs are still
	// idempotent, but there is nothing to restore from.
	NoBackup bool

	now func() time.Time // test hook
}

// Runner executes weave runs over one source tree.
type Runner struct {
	opts Options
	log  *slog.Logger
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("runner: root directory is required")
	}
	if len(opts.Rules) == 0 {
		return nil, fmt.Errorf("runner: at least one rules file is required")
	}
	if err := opts.Settings.Normalize(); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.OutputDir == "" && opts.Stubbed {
		clean := strings.TrimRight(filepath.Clean(opts.Root), string(filepath.Separator))
		opts.OutputDir = fmt.Sprintf("%s_stubbed_%s", clean, opts.now().Format(backup.TimestampLayout))
	}
	return &Runner{opts: opts, log: logging.New("runner")}, nil
}

// Run executes one full weave pass and returns the report. The returned
// error covers run-level failures only (bad rules, unreadable root);
// per-file trouble lands in the report as a failed file instead.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	started := r.opts.now()

	cat, err := catalog.Load(r.opts.Rules...)
	if err != nil {
		return nil, err
	}
	r.log.Info("rules loaded", "files", len(r.opts.Rules), "snippets", cat.Len())

	rels, err := r.collect()
	if err != nil {
		return nil, err
	}
	r.log.Info("source tree scanned", "root", r.opts.Root, "files", len(rels))

	report := &Report{
		Root:    r.opts.Root,
		Rules:   r.opts.Rules,
		Started: started.UTC(),
	}

	var set *backup.Set
	if r.opts.OutputDir == "" && !r.opts.NoBackup {
		set = backup.NewSet(r.opts.Root, started)
		report.BackupDir = set.Dir
	}
	if r.opts.OutputDir != "" {
		report.OutputDir = r.opts.OutputDir
	}

	var (
		mu      sync.Mutex
		files   []FileReport
		matched = make(map[marker.Key]bool)
	)

	scanner := marker.NewScanner(r.opts.Settings.CommentPrefix)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Settings.Parallel)
	for _, rel := range rels {
		rel := rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr := r.processFile(rel, scanner, cat, set)
			mu.Lock()
			files = append(files, fr)
			for _, res := range fr.Anchors {
				if res.Status != weave.StatusSkippedNoRule {
					matched[res.Key] = true
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	report.Files = files
	report.Counts = tally(files)
	report.UnusedKeys = unusedKeys(cat, matched)
	report.Duration = r.opts.now().Sub(started)

	if set != nil && set.Len() > 0 {
		if err := set.WriteManifest(r.opts.now()); err != nil {
			return nil, err
		}
	}
	if set != nil && set.Len() == 0 {
		report.BackupDir = "" // nothing was written, no tree exists
	}

	r.log.Info("run complete",
		"files", report.Counts.FilesScanned,
		"woven", report.Counts.FilesWoven,
		"inserted", report.Counts.Inserted,
		"replaced", report.Counts.Replaced,
		"failed", report.Counts.AnchorsFailed,
		"duration", report.Duration.Round(time.Millisecond))
	return report, nil
}

// collect walks the root and returns the relative paths of eligible files,
// sorted. Backup and stubbed-output trees from earlier runs are skipped so
// a weave never chews on its own leavings.
func (r *Runner) collect() ([]string, error) {
	var rels []string
	err := filepath.WalkDir(r.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == r.opts.Root {
				return nil
			}
			if r.opts.Settings.Excluded(name) || isGeneratedTree(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !r.opts.Settings.Eligible(name) {
			return nil
		}
		rel, err := filepath.Rel(r.opts.Root, path)
		if err != nil {
			return err
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", r.opts.Root, err)
	}
	sort.Strings(rels)
	return rels, nil
}

func isGeneratedTree(name string) bool {
	return strings.Contains(name, "_backup_") || strings.Contains(name, "_stubbed_")
}

// processFile runs the snapshot, scan, weave, write sequence for one file.
// In-place runs only touch files that changed; output-dir runs mirror every
// eligible file so the stubbed tree is usable on its own. All failure modes
// are folded into the FileReport.
func (r *Runner) processFile(rel string, scanner *marker.Scanner, cat *catalog.Catalog, set *backup.Set) FileReport {
	fr := FileReport{Path: rel, Status: FileUnchanged}

	abs := filepath.Join(r.opts.Root, rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		fr.Status = FileFailed
		fr.Reason = err.Error()
		return fr
	}

	occs := scanner.Scan(rel, string(data))
	if len(occs) == 0 && r.opts.OutputDir == "" {
		return fr
	}

	woven, results := weave.Apply(string(data), occs, cat)
	fr.Anchors = results

	changed := woven != string(data)
	if !changed && r.opts.OutputDir == "" {
		r.log.Debug("file unchanged", "path", rel, "anchors", len(occs))
		return fr
	}

	if changed && set != nil {
		if _, err := set.Snapshot(rel); err != nil {
			fr.Status = FileFailed
			fr.Reason = err.Error()
			return fr
		}
	}

	dst := abs
	if r.opts.OutputDir != "" {
		dst = filepath.Join(r.opts.OutputDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			fr.Status = FileFailed
			fr.Reason = err.Error()
			return fr
		}
	}
	if err := writeFileAtomic(dst, []byte(woven)); err != nil {
		fr.Status = FileFailed
		fr.Reason = err.Error()
		return fr
	}
	if set != nil {
		set.CommitWoven(rel, []byte(woven))
	}

	if changed {
		fr.Status = FileWoven
		r.log.Debug("file woven", "path", rel, "anchors", len(occs))
	}
	return fr
}

// writeFileAtomic writes data via a temp file in the same directory plus
// rename, so a crash mid-write never leaves a half-woven file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".weave-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func unusedKeys(cat *catalog.Catalog, matched map[marker.Key]bool) []marker.Key {
	var out []marker.Key
	for _, k := range cat.Keys() {
		if !matched[k] {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
