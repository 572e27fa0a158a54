package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRules = `TC001:
  STEP1:
    segment1: |
      probe();
`

func writeFixture(t *testing.T) (root, rules string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "src")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	source := "void f(void) {\n    // TC001 STEP1 segment1\n}\n"
	if err := os.WriteFile(filepath.Join(root, "demo.c"), []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	rules = filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(rules, []byte(testRules), 0644); err != nil {
		t.Fatal(err)
	}
	return root, rules
}

func TestWeaveTree_EndToEnd(t *testing.T) {
	root, rules := writeFixture(t)
	srv := NewServer()

	_, out, err := srv.handleWeaveTree(context.Background(), nil, weaveTreeInput{
		Root:  root,
		Rules: []string{rules},
	})
	if err != nil {
		t.Fatalf("weave_tree: %v", err)
	}

	if out.Counts.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", out.Counts.Inserted)
	}
	if out.BackupDir == "" {
		t.Error("expected a backup dir in the output")
	}
	if !strings.Contains(out.Summary, "demo.c") {
		t.Errorf("summary missing file path:\n%s", out.Summary)
	}

	woven, _ := os.ReadFile(filepath.Join(root, "demo.c"))
	if !strings.Contains(string(woven), "probe();") {
		t.Error("snippet not woven into the tree")
	}
}

func TestWeaveTree_MissingRules(t *testing.T) {
	srv := NewServer()
	_, _, err := srv.handleWeaveTree(context.Background(), nil, weaveTreeInput{Root: "."})
	if err == nil {
		t.Fatal("expected error without rules")
	}
}

func TestRestoreBackup_RoundTrip(t *testing.T) {
	root, rules := writeFixture(t)
	srv := NewServer()

	original, _ := os.ReadFile(filepath.Join(root, "demo.c"))

	_, wout, err := srv.handleWeaveTree(context.Background(), nil, weaveTreeInput{
		Root:  root,
		Rules: []string{rules},
	})
	if err != nil {
		t.Fatalf("weave_tree: %v", err)
	}

	_, rout, err := srv.handleRestoreBackup(context.Background(), nil, restoreBackupInput{
		BackupDir: wout.BackupDir,
	})
	if err != nil {
		t.Fatalf("restore_backup: %v", err)
	}
	if rout.Restored != 1 || rout.Failed != 0 {
		t.Errorf("restore counts = %+v, want 1 restored", rout)
	}

	live, _ := os.ReadFile(filepath.Join(root, "demo.c"))
	if string(live) != string(original) {
		t.Error("restore did not reproduce the original file")
	}
}

func TestRestoreBackup_RequiresDir(t *testing.T) {
	srv := NewServer()
	_, _, err := srv.handleRestoreBackup(context.Background(), nil, restoreBackupInput{})
	if err == nil {
		t.Fatal("expected error without backup_dir")
	}
}

func TestExtractRules_ReturnsYAML(t *testing.T) {
	root, rules := writeFixture(t)
	srv := NewServer()

	if _, _, err := srv.handleWeaveTree(context.Background(), nil, weaveTreeInput{
		Root:  root,
		Rules: []string{rules},
	}); err != nil {
		t.Fatalf("weave_tree: %v", err)
	}

	_, out, err := srv.handleExtractRules(context.Background(), nil, extractRulesInput{Root: root})
	if err != nil {
		t.Fatalf("extract_rules: %v", err)
	}
	if out.Snippets != 1 {
		t.Errorf("snippets = %d, want 1", out.Snippets)
	}
	if !strings.Contains(out.RulesYAML, "TC001") || !strings.Contains(out.RulesYAML, "probe();") {
		t.Errorf("rules yaml missing expected content:\n%s", out.RulesYAML)
	}
}

func TestResolve_RelativePaths(t *testing.T) {
	srv := &Server{ProjectRoot: "/work/project"}
	if got := srv.resolve("src"); got != filepath.Join("/work/project", "src") {
		t.Errorf("resolve relative = %q", got)
	}
	if got := srv.resolve("/abs/path"); got != "/abs/path" {
		t.Errorf("resolve absolute = %q", got)
	}
	if got := srv.resolveOptional(""); got != "" {
		t.Errorf("resolveOptional empty = %q", got)
	}
}
