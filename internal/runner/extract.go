package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"yamlweave/internal/catalog"
	"yamlweave/internal/config"
	"yamlweave/internal/logging"
	"yamlweave/internal/marker"
)

// ExtractResult summarizes a harvest pass.
type ExtractResult struct {
	Catalog      *catalog.Catalog
	FilesScanned int
	Anchors      int // anchors seen, with or without an injected block
	Harvested    int // anchors that contributed a snippet
}

// Extract walks a woven tree and rebuilds the rules catalog from the
// injected blocks found under each anchor. The inverse of a weave run:
// given only the stubbed sources, it recovers the YAML that produced them.
//
// An anchor with no block under it is counted but contributes nothing.
// Two anchors with the same key must carry identical blocks; a mismatch
// is an ambiguity error, same as colliding rules files.
func Extract(root string, settings config.Settings) (*ExtractResult, error) {
	if err := settings.Normalize(); err != nil {
		return nil, err
	}
	log := logging.New("extract")

	r := &Runner{opts: Options{Root: root, Settings: settings}, log: log}
	rels, err := r.collect()
	if err != nil {
		return nil, err
	}

	scanner := marker.NewScanner(settings.CommentPrefix)
	res := &ExtractResult{Catalog: catalog.New()}

	for _, rel := range rels {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", rel, err)
		}
		res.FilesScanned++

		lines := marker.SplitLines(string(data))
		for _, occ := range scanner.Scan(rel, string(data)) {
			res.Anchors++
			indent := marker.Indent(occ.Raw)

			var block []string
			for i := occ.Line + 1; i < len(lines); i++ {
				if !marker.IsInjected(lines[i]) {
					break
				}
				content, ok := marker.InjectedContent(lines[i], indent)
				if !ok {
					return nil, fmt.Errorf("extract %s:%d: unreadable injected line under %s",
						rel, i+1, occ.Key)
				}
				block = append(block, content)
			}
			if len(block) == 0 {
				continue
			}
			source := fmt.Sprintf("%s:%d", rel, occ.Line+1)
			if err := res.Catalog.Add(occ.Key, block, source); err != nil {
				return nil, err
			}
			res.Harvested++
		}
	}

	log.Info("extract complete",
		"files", res.FilesScanned, "anchors", res.Anchors,
		"snippets", res.Catalog.Len())
	return res, nil
}
