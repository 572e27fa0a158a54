package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDrainReady_Debounce(t *testing.T) {
	w := NewWatcher(nil, nil)

	if w.drainReady() {
		t.Error("empty queue should not be ready")
	}

	w.mu.Lock()
	w.pending["a.c"] = time.Now()
	w.mu.Unlock()
	if w.drainReady() {
		t.Error("fresh change should still be inside the debounce window")
	}

	w.mu.Lock()
	w.pending["a.c"] = time.Now().Add(-time.Second)
	w.mu.Unlock()
	if !w.drainReady() {
		t.Error("aged change should be ready")
	}
	if w.drainReady() {
		t.Error("queue should be drained after a ready report")
	}
}

func TestIsRulesFile(t *testing.T) {
	rules := []string{"conf/rules.yaml"}
	if !isRulesFile(rules, "conf/rules.yaml") {
		t.Error("exact path should match")
	}
	if !isRulesFile(rules, "conf/../conf/rules.yaml") {
		t.Error("unclean path should match after Clean")
	}
	if isRulesFile(rules, "conf/other.yaml") {
		t.Error("different file should not match")
	}
}

func TestIsGeneratedTree(t *testing.T) {
	if !isGeneratedTree("src_backup_20250521_095312") {
		t.Error("backup tree should be recognized")
	}
	if !isGeneratedTree("src_stubbed_20250521_095312") {
		t.Error("stubbed tree should be recognized")
	}
	if isGeneratedTree("src") {
		t.Error("plain dir should not be recognized")
	}
}

func TestWatch_ReweavesOnChange(t *testing.T) {
	root := writeTree(t, map[string]string{"demo.c": "int main(void) {}\n"})
	rules := writeRules(t, rulesDoc)

	r := newTestRunner(t, Options{Root: root, Rules: []string{rules}, NoBackup: true})

	runs := make(chan *Report, 4)
	w := NewWatcher(r, func(rep *Report, err error) {
		if err != nil {
			t.Errorf("watched run failed: %v", err)
			return
		}
		runs <- rep
	})
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// give the watcher time to register the tree
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(root, "demo.c")
	if err := os.WriteFile(path, []byte(demoSource), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case rep := <-runs:
		if rep.Counts.Inserted == 0 {
			t.Errorf("expected insertions after change, got %+v", rep.Counts)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no re-run within 10s of a source change")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
