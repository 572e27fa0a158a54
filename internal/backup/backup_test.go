package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testStamp = time.Date(2025, 5, 21, 9, 53, 12, 0, time.UTC)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestNewSet_DirNaming(t *testing.T) {
	s := NewSet("/work/samples", testStamp)
	if s.Dir != "/work/samples_backup_20250521_095312" {
		t.Errorf("Dir = %q", s.Dir)
	}
}

func TestSnapshot_CopiesOriginal(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	writeTree(t, root, map[string]string{"module2/Demo2.2.c": "original\n"})

	s := NewSet(root, testStamp)
	rec, err := s.Snapshot("module2/Demo2.2.c")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if rec.OriginalSHA == "" {
		t.Error("no original hash recorded")
	}
	got := readFile(t, filepath.Join(s.Dir, "module2/Demo2.2.c"))
	if got != "original\n" {
		t.Errorf("backup content = %q", got)
	}
}

func TestSnapshot_FirstWins(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	writeTree(t, root, map[string]string{"a.c": "pristine\n"})

	s := NewSet(root, testStamp)
	if _, err := s.Snapshot("a.c"); err != nil {
		t.Fatal(err)
	}

	// Simulate the weave writing over the live file, then a second pass
	// snapshotting again: the backup must keep the pristine bytes.
	writeTree(t, root, map[string]string{"a.c": "woven\n"})
	if _, err := s.Snapshot("a.c"); err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, filepath.Join(s.Dir, "a.c")); got != "pristine\n" {
		t.Errorf("backup overwritten by later snapshot: %q", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestSnapshot_MissingSource(t *testing.T) {
	s := NewSet(filepath.Join(t.TempDir(), "src"), testStamp)
	if _, err := s.Snapshot("nope.c"); err == nil {
		t.Error("want error for unreadable source")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	writeTree(t, root, map[string]string{"a.c": "one\n", "sub/b.c": "two\n"})

	s := NewSet(root, testStamp)
	for _, rel := range []string{"a.c", "sub/b.c"} {
		if _, err := s.Snapshot(rel); err != nil {
			t.Fatal(err)
		}
	}
	s.CommitWoven("a.c", []byte("one woven\n"))
	if err := s.WriteManifest(testStamp); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	loaded, err := LoadSet(s.Dir)
	if err != nil {
		t.Fatalf("LoadSet: %v", err)
	}
	if loaded.Root != root || loaded.Len() != 2 {
		t.Errorf("loaded set = %+v", loaded)
	}
	recs := loaded.Records()
	if recs["a.c"].WovenSHA == "" {
		t.Error("woven hash lost in round trip")
	}
	if recs["sub/b.c"].WovenSHA != "" {
		t.Error("unexpected woven hash for unwoven file")
	}
}

func TestRestore_ReproducesOriginalBytes(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	writeTree(t, root, map[string]string{"a.c": "original bytes\n"})

	s := NewSet(root, testStamp)
	if _, err := s.Snapshot("a.c"); err != nil {
		t.Fatal(err)
	}
	woven := "original bytes\nextra();  // inserted via stub\n"
	writeTree(t, root, map[string]string{"a.c": woven})
	s.CommitWoven("a.c", []byte(woven))

	results := s.Restore(false)
	if len(results) != 1 || results[0].Status != RestoreDone {
		t.Fatalf("results = %+v", results)
	}
	if got := readFile(t, filepath.Join(root, "a.c")); got != "original bytes\n" {
		t.Errorf("restored content = %q", got)
	}
}

func TestRestore_SkipsHandEditedFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	writeTree(t, root, map[string]string{"a.c": "original\n"})

	s := NewSet(root, testStamp)
	if _, err := s.Snapshot("a.c"); err != nil {
		t.Fatal(err)
	}
	s.CommitWoven("a.c", []byte("woven\n"))
	writeTree(t, root, map[string]string{"a.c": "hand edited after the run\n"})

	results := s.Restore(false)
	if results[0].Status != RestoreSkipped {
		t.Fatalf("results = %+v", results)
	}
	if got := readFile(t, filepath.Join(root, "a.c")); !strings.Contains(got, "hand edited") {
		t.Errorf("hand edits were discarded: %q", got)
	}

	forced := s.Restore(true)
	if forced[0].Status != RestoreDone {
		t.Fatalf("forced results = %+v", forced)
	}
	if got := readFile(t, filepath.Join(root, "a.c")); got != "original\n" {
		t.Errorf("forced restore content = %q", got)
	}
}

func TestRestore_MissingLiveFileComesBack(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	writeTree(t, root, map[string]string{"a.c": "original\n"})

	s := NewSet(root, testStamp)
	if _, err := s.Snapshot("a.c"); err != nil {
		t.Fatal(err)
	}
	s.CommitWoven("a.c", []byte("woven\n"))
	if err := os.Remove(filepath.Join(root, "a.c")); err != nil {
		t.Fatal(err)
	}

	results := s.Restore(false)
	if results[0].Status != RestoreDone {
		t.Fatalf("results = %+v", results)
	}
	if got := readFile(t, filepath.Join(root, "a.c")); got != "original\n" {
		t.Errorf("content = %q", got)
	}
}
