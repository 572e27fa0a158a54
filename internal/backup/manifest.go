package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Manifest is the serialized form of a backup set.
type Manifest struct {
	Root    string   `json:"root"`
	Created string   `json:"created"`
	Files   []Record `json:"files"`
}

// WriteManifest persists the set's bookkeeping into the backup tree.
// Without a manifest a backup tree is still a plain file copy, but restore
// verification needs the hashes.
func (s *Set) WriteManifest(now time.Time) error {
	s.mu.Lock()
	m := Manifest{Root: s.Root, Created: now.UTC().Format(time.RFC3339)}
	for _, rec := range s.records {
		m.Files = append(m.Files, *rec)
	}
	s.mu.Unlock()

	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LoadSet opens an existing backup tree by reading its manifest.
func LoadSet(dir string) (*Set, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("open backup set: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	s := &Set{Root: m.Root, Dir: dir, records: make(map[string]*Record, len(m.Files))}
	for i := range m.Files {
		rec := m.Files[i]
		s.records[rec.Path] = &rec
	}
	return s, nil
}
