// Package backup snapshots pristine sources before weaving and restores
// them afterwards. One Set is one timestamped backup tree next to the
// source root (samples_backup_20250521_095312 style), plus a manifest
// recording content hashes for restore verification.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimestampLayout names backup trees, matching the original tool's runs.
const TimestampLayout = "20060102_150405"

// ManifestName is the bookkeeping file written at the root of a backup tree.
const ManifestName = "manifest.json"

// Record is the bookkeeping for one snapshotted file. Created before the
// file's first write in a run and never mutated afterwards, except that
// the woven-output hash is filled in once the new content is committed.
type Record struct {
	Path        string `json:"path"` // relative to the source root
	OriginalSHA string `json:"original_sha256"`
	WovenSHA    string `json:"woven_sha256,omitempty"`
}

// Set is one run's backup tree.
type Set struct {
	Root string // source tree the backups came from
	Dir  string // backup tree location

	mu      sync.Mutex
	records map[string]*Record
}

// NewSet prepares a backup set for root. The tree directory is
// <root>_backup_<timestamp>; nothing is created until the first snapshot.
func NewSet(root string, now time.Time) *Set {
	clean := strings.TrimRight(filepath.Clean(root), string(filepath.Separator))
	return &Set{
		Root:    root,
		Dir:     fmt.Sprintf("%s_backup_%s", clean, now.Format(TimestampLayout)),
		records: make(map[string]*Record),
	}
}

// Snapshot copies the untouched original at rel into the backup tree and
// returns its record. First snapshot wins: repeated calls for the same file
// within a run return the existing record without touching the backup, so
// a second weave pass cannot push woven content into it.
func (s *Set) Snapshot(rel string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[rel]; ok {
		return rec, nil
	}

	src := filepath.Join(s.Root, rel)
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", rel, err)
	}

	dst := filepath.Join(s.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", rel, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", rel, err)
	}

	rec := &Record{Path: rel, OriginalSHA: hashBytes(data)}
	s.records[rel] = rec
	return rec, nil
}

// CommitWoven records the hash of the woven output written over rel.
// Restore uses it to detect files edited by hand after the run.
func (s *Set) CommitWoven(rel string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[rel]; ok {
		rec.WovenSHA = hashBytes(content)
	}
}

// Records returns a copy of the bookkeeping, keyed by relative path.
func (s *Set) Records() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = *v
	}
	return out
}

// Len returns the number of snapshotted files.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}
