// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, reports, and logs. Keep raw codes
// for JSON fields, map keys, and equality comparisons.
package display

import "strings"

// --- Anchor outcomes ---

var anchorStatuses = map[string]string{
	"inserted":              "Inserted",
	"replaced":              "Replaced",
	"skipped_no_snippet":    "No Snippet",
	"skipped_already_woven": "Already Woven",
	"failed":                "Failed",
}

// AnchorStatus returns the human-readable name for a per-anchor outcome
// code. Unknown codes are returned as-is.
func AnchorStatus(code string) string {
	if name, ok := anchorStatuses[code]; ok {
		return name
	}
	return code
}

// AnchorStatusWithCode returns "Already Woven (skipped_already_woven)"
// format for dual-audience contexts.
func AnchorStatusWithCode(code string) string {
	if name, ok := anchorStatuses[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- File outcomes ---

var fileStatuses = map[string]string{
	"woven":     "Woven",
	"unchanged": "Unchanged",
	"failed":    "Failed",
}

// FileStatus returns the human-readable name for a per-file outcome code.
func FileStatus(code string) string {
	if name, ok := fileStatuses[code]; ok {
		return name
	}
	return code
}

// --- Restore outcomes ---

var restoreStatuses = map[string]string{
	"restored":         "Restored",
	"skipped_modified": "Modified, Skipped",
	"failed":           "Failed",
}

// RestoreStatus returns the human-readable name for a restore outcome code.
func RestoreStatus(code string) string {
	if name, ok := restoreStatuses[code]; ok {
		return name
	}
	return code
}

// Anchor formats a marker key triple for humans: "TC001 / STEP1 / segment1".
func Anchor(testCase, step, segment string) string {
	return strings.Join([]string{testCase, step, segment}, " / ")
}
