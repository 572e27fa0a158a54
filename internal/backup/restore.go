package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// RestoreStatus classifies the outcome for one file during a restore.
type RestoreStatus string

const (
	RestoreDone    RestoreStatus = "restored"
	RestoreSkipped RestoreStatus = "skipped_modified"
	RestoreFailed  RestoreStatus = "failed"
)

// RestoreResult is the per-file outcome of a restore pass.
type RestoreResult struct {
	Path   string        `json:"path"`
	Status RestoreStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Restore writes every snapshotted original back over the live tree.
//
// Before touching a file it checks that the live content still matches the
// woven output recorded at weave time; a mismatch means someone edited the
// file by hand since, and it is skipped with a warning result instead of
// silently discarding their work. force overrides the check. A missing
// live file is restored unconditionally.
func (s *Set) Restore(force bool) []RestoreResult {
	recs := s.Records()
	paths := make([]string, 0, len(recs))
	for rel := range recs {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	results := make([]RestoreResult, 0, len(recs))
	for _, rel := range paths {
		rec := recs[rel]
		res := RestoreResult{Path: rel}

		backupPath := filepath.Join(s.Dir, rel)
		original, err := os.ReadFile(backupPath)
		if err != nil {
			res.Status = RestoreFailed
			res.Reason = fmt.Sprintf("backup missing: %v", err)
			results = append(results, res)
			continue
		}

		livePath := filepath.Join(s.Root, rel)
		if !force && rec.WovenSHA != "" {
			liveSHA, err := hashFile(livePath)
			switch {
			case os.IsNotExist(err):
				// deleted since the run; put the original back
			case err != nil:
				res.Status = RestoreFailed
				res.Reason = fmt.Sprintf("read live file: %v", err)
				results = append(results, res)
				continue
			case liveSHA != rec.WovenSHA:
				res.Status = RestoreSkipped
				res.Reason = "live file modified since weave; use --force to overwrite"
				results = append(results, res)
				continue
			}
		}

		if err := os.MkdirAll(filepath.Dir(livePath), 0755); err != nil {
			res.Status = RestoreFailed
			res.Reason = err.Error()
			results = append(results, res)
			continue
		}
		if err := os.WriteFile(livePath, original, 0644); err != nil {
			res.Status = RestoreFailed
			res.Reason = err.Error()
			results = append(results, res)
			continue
		}
		res.Status = RestoreDone
		results = append(results, res)
	}

	return results
}
