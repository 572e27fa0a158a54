package format

import (
	"fmt"
	"time"
)

// FmtDuration formats a duration as "Xm Ys" or "Y.Zs".
func FmtDuration(d time.Duration) string {
	s := d.Seconds()
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", int(s)/60, int(s)%60)
	}
	return fmt.Sprintf("%.1fs", s)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// Plural returns the singular or plural form based on n.
func Plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
