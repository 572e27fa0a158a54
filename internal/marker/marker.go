// Package marker locates stub anchors in source text.
//
// An anchor is a comment line whose content, after the comment prefix,
// is exactly "TC<id> STEP<id> <segment>", e.g.
//
//	// TC001 STEP1 segment1
//
// The scanner knows nothing about the host language beyond the comment
// prefix; everything else in the file is opaque text.
package marker

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCommentPrefix is the line-comment prefix used when none is configured.
const DefaultCommentPrefix = "//"

// Sentinel is appended (after SentinelSep) to every tool-inserted line so
// injected blocks can be told apart from hand-written code on re-runs.
const Sentinel = "// inserted via stub"

// SentinelSep separates injected code from the trailing sentinel.
const SentinelSep = "  "

// Key identifies the snippet binding for an anchor. Matching is exact-string
// and case-sensitive; the same Key may occur in any number of files.
type Key struct {
	TestCase string `json:"test_case"`
	Step     string `json:"step"`
	Segment  string `json:"segment"`
}

func (k Key) String() string {
	return k.TestCase + " " + k.Step + " " + k.Segment
}

// Occurrence is one physical anchor line found by a scan.
type Occurrence struct {
	Key  Key
	Path string // file the anchor was found in (as given to the scanner)
	Line int    // 0-based line index in the scanned text
	Raw  string // the full anchor line, untouched
}

// anchorContent matches the stripped comment content of an anchor line.
// TC and STEP ids are alphanumeric; the segment is a single word token.
var anchorContent = regexp.MustCompile(`^TC[0-9A-Za-z]+ STEP[0-9A-Za-z]+ [A-Za-z0-9_]+$`)

// Scanner finds anchors for one comment syntax.
type Scanner struct {
	prefix string
}

// NewScanner returns a Scanner for the given line-comment prefix.
// An empty prefix selects DefaultCommentPrefix.
func NewScanner(prefix string) *Scanner {
	if prefix == "" {
		prefix = DefaultCommentPrefix
	}
	return &Scanner{prefix: prefix}
}

// Scan returns every anchor in text, in file order. It is pure: scanning
// the same text twice yields the same occurrences.
func (s *Scanner) Scan(path, text string) []Occurrence {
	var occs []Occurrence
	for i, line := range SplitLines(text) {
		key, ok := s.ParseLine(line)
		if !ok {
			continue
		}
		occs = append(occs, Occurrence{Key: key, Path: path, Line: i, Raw: line})
	}
	return occs
}

// ParseLine reports whether a single line is an anchor and, if so, its Key.
// Lines carrying the injected sentinel are never anchors, so a woven block
// that happens to contain anchor-shaped text cannot spawn new insertion
// points.
func (s *Scanner) ParseLine(line string) (Key, bool) {
	if IsInjected(line) {
		return Key{}, false
	}
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, s.prefix) {
		return Key{}, false
	}
	content := strings.TrimSpace(strings.TrimPrefix(trimmed, s.prefix))
	content = collapseSpaces(content)
	if !anchorContent.MatchString(content) {
		return Key{}, false
	}
	parts := strings.Fields(content)
	return Key{TestCase: parts[0], Step: parts[1], Segment: parts[2]}, true
}

// Indent returns the leading whitespace of an anchor line. Injected lines
// inherit it so they sit at the anchor's depth.
func Indent(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}

// IsInjected reports whether line was produced by a previous weave. A
// trailing carriage return (CRLF sources) does not hide the sentinel.
func IsInjected(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, " \t\r"), Sentinel)
}

// InjectedContent strips the indentation and trailing sentinel from an
// injected line, recovering the snippet line as it appeared in the rules
// file. The second return is false if line is not an injected line.
func InjectedContent(line, indent string) (string, bool) {
	if !IsInjected(line) {
		return "", false
	}
	body := strings.TrimRight(line, " \t\r")
	body = strings.TrimSuffix(body, Sentinel)
	body = strings.TrimRight(body, " \t")
	body = strings.TrimPrefix(body, indent)
	return body, true
}

// InjectedLine renders one snippet line as it is written into a file:
// anchor indentation, the line itself, separator, sentinel.
func InjectedLine(indent, snippetLine string) string {
	return fmt.Sprintf("%s%s%s%s", indent, snippetLine, SentinelSep, Sentinel)
}

// SplitLines splits text into lines without the trailing newlines.
// A trailing newline does not produce a phantom empty last line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// collapseSpaces folds runs of spaces/tabs into single spaces so anchors
// written with aligned columns still parse.
func collapseSpaces(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
