// Package weave implements the insertion pass: combining a file's anchor
// occurrences with the rules catalog to produce the stubbed text.
//
// The pass is deterministic and idempotent. Everything outside an injected
// block is carried through byte-identical, and weaving already-woven text
// with the same catalog is a no-op.
package weave

import (
	"fmt"
	"strings"

	"yamlweave/internal/catalog"
	"yamlweave/internal/marker"
)

// Status classifies the outcome at one anchor. Raw codes are for JSON and
// comparisons; display.Status turns them into words.
type Status string

const (
	StatusInserted      Status = "inserted"
	StatusReplaced      Status = "replaced"
	StatusSkippedNoRule Status = "skipped_no_snippet"
	StatusAlreadyWoven  Status = "skipped_already_woven"
	StatusFailed        Status = "failed"
)

// Result is the per-anchor outcome of one Apply pass.
type Result struct {
	Key    marker.Key `json:"key"`
	Line   int        `json:"line"` // 1-based anchor line in the input text
	Status Status     `json:"status"`
	Reason string     `json:"reason,omitempty"` // set when Status is failed
}

// ConflictError reports an existing injected block that cannot be cleanly
// replaced, e.g. lines whose indentation no longer matches the anchor.
// The anchor is left untouched when this happens.
type ConflictError struct {
	Key    marker.Key
	Line   int // 1-based anchor line
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot replace injected block for %s at line %d: %s", e.Key, e.Line, e.Reason)
}

// Apply weaves one file's text. Anchors are processed in textual order;
// insertions shift the positions of later anchors, which Apply tracks via
// a running offset. The input slices are not modified.
func Apply(text string, occs []marker.Occurrence, cat *catalog.Catalog) (string, []Result) {
	lines := marker.SplitLines(text)
	hadFinalNewline := strings.HasSuffix(text, "\n") || text == ""

	// Injected lines follow the file's own line endings, so a CRLF source
	// stays uniformly CRLF after weaving.
	eol := ""
	if strings.Contains(text, "\r\n") {
		eol = "\r"
	}

	results := make([]Result, 0, len(occs))
	offset := 0

	for _, occ := range occs {
		res := Result{Key: occ.Key, Line: occ.Line + 1}
		at := occ.Line + offset

		snip, ok := cat.Resolve(occ.Key)
		if !ok {
			res.Status = StatusSkippedNoRule
			results = append(results, res)
			continue
		}

		indent := marker.Indent(occ.Raw)
		existing, err := readInjectedBlock(lines, at+1, indent)
		if err != nil {
			res.Status = StatusFailed
			res.Reason = (&ConflictError{Key: occ.Key, Line: occ.Line + 1, Reason: err.Error()}).Error()
			results = append(results, res)
			continue
		}

		rendered := renderBlock(indent, snip.Lines, eol)

		switch {
		case len(snip.Lines) == 0 && len(existing) == 0:
			// nothing to add, nothing to remove; counting this as an
			// insertion would inflate every re-run
			res.Status = StatusAlreadyWoven
		case len(existing) == 0:
			lines = spliceLines(lines, at+1, 0, rendered)
			offset += len(rendered)
			res.Status = StatusInserted
		case blockEqual(existing, snip.Lines):
			res.Status = StatusAlreadyWoven
		default:
			lines = spliceLines(lines, at+1, len(existing), rendered)
			offset += len(rendered) - len(existing)
			res.Status = StatusReplaced
		}
		results = append(results, res)
	}

	out := strings.Join(lines, "\n")
	if hadFinalNewline && out != "" {
		out += "\n"
	}
	return out, results
}

// readInjectedBlock collects the contiguous run of sentinel-tagged lines
// starting at index start, returning the recovered snippet lines. A tagged
// line whose content cannot be recovered against the anchor's indentation
// is a conflict: a previous weave was edited or truncated by hand.
func readInjectedBlock(lines []string, start int, indent string) ([]string, error) {
	var block []string
	for i := start; i < len(lines); i++ {
		if !marker.IsInjected(lines[i]) {
			break
		}
		content, ok := marker.InjectedContent(lines[i], indent)
		if !ok {
			return nil, fmt.Errorf("unreadable injected line %d", i+1)
		}
		if content != "" && !strings.HasPrefix(strings.TrimSuffix(strings.TrimRight(lines[i], " \t\r"), marker.Sentinel), indent) {
			return nil, fmt.Errorf("injected line %d no longer aligned with the anchor", i+1)
		}
		block = append(block, content)
	}
	return block, nil
}

// renderBlock turns snippet lines into the physical lines written to the
// file: anchor indentation plus the trailing sentinel on every line. eol is
// "\r" for CRLF sources, "" otherwise.
func renderBlock(indent string, snippetLines []string, eol string) []string {
	out := make([]string, len(snippetLines))
	for i, l := range snippetLines {
		out[i] = marker.InjectedLine(indent, l) + eol
	}
	return out
}

// blockEqual compares recovered block content to catalog snippet lines.
// Trailing whitespace is not significant: recovery trims it, so the
// comparison does too.
func blockEqual(existing, snippet []string) bool {
	if len(existing) != len(snippet) {
		return false
	}
	for i := range existing {
		if strings.TrimRight(existing[i], " \t") != strings.TrimRight(snippet[i], " \t") {
			return false
		}
	}
	return true
}

// spliceLines replaces the del lines at index at with ins, copying so the
// caller's slice stays usable.
func spliceLines(lines []string, at, del int, ins []string) []string {
	out := make([]string, 0, len(lines)-del+len(ins))
	out = append(out, lines[:at]...)
	out = append(out, ins...)
	out = append(out, lines[at+del:]...)
	return out
}
