package runner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs a weave whenever eligible files under the root change.
// Rapid saves are debounced so an editor writing a file in several syscalls
// triggers one run, not five.
type Watcher struct {
	runner   *Runner
	onRun    func(*Report, error)
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher wraps a Runner. onRun receives every re-run's report (or
// error); it must not block for long.
func NewWatcher(r *Runner, onRun func(*Report, error)) *Watcher {
	return &Watcher{
		runner:   r,
		onRun:    onRun,
		debounce: 500 * time.Millisecond,
		pending:  make(map[string]time.Time),
	}
}

// Watch blocks until ctx is cancelled, re-weaving on changes. The rules
// files are watched too, so editing a snippet re-runs the weave just like
// editing a source file.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw); err != nil {
		return err
	}
	for _, rules := range w.runner.opts.Rules {
		if err := fsw.Add(filepath.Dir(rules)); err != nil {
			w.runner.log.Warn("cannot watch rules dir", "path", rules, "error", err)
		}
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.runner.log.Warn("watch error", "error", err)

		case <-ticker.C:
			if w.drainReady() {
				report, err := w.runner.Run(ctx)
				if w.onRun != nil {
					w.onRun(report, err)
				}
			}
		}
	}
}

// addTree registers the root and every subdirectory. fsnotify watches are
// not recursive, so new directories get added as their create events arrive.
func (w *Watcher) addTree(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.runner.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != w.runner.opts.Root && (w.runner.opts.Settings.Excluded(name) || isGeneratedTree(name)) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Base(event.Name)
	if isGeneratedTree(event.Name) || strings.HasPrefix(name, ".weave-") {
		return
	}

	if event.Has(fsnotify.Create) {
		// new subdirectory: start watching it
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			fsw.Add(event.Name)
			return
		}
	}

	interesting := w.runner.opts.Settings.Eligible(name) || isRulesFile(w.runner.opts.Rules, event.Name)
	if !interesting {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
	w.runner.log.Debug("change detected", "path", event.Name, "op", event.Op.String())
}

// drainReady reports whether any pending change has sat past the debounce
// window, clearing the queue when so.
func (w *Watcher) drainReady() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return false
	}
	now := time.Now()
	for _, t := range w.pending {
		if now.Sub(t) < w.debounce {
			return false
		}
	}
	w.pending = make(map[string]time.Time)
	return true
}

func isRulesFile(rules []string, path string) bool {
	for _, r := range rules {
		if filepath.Clean(r) == filepath.Clean(path) {
			return true
		}
	}
	return false
}
