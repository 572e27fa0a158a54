package format_test

import (
	"strings"
	"testing"
	"time"

	"yamlweave/internal/format"
)

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("File", "Inserted", "Failed")
	tb.Row("module2/Demo2.2.c", 3, 0)
	tb.Row("module2/Demo2.1.c", 1, 1)
	out := tb.String()

	if !strings.Contains(out, "File") {
		t.Errorf("expected header 'File' in output:\n%s", out)
	}
	if !strings.Contains(out, "module2/Demo2.2.c") {
		t.Errorf("expected file path in output:\n%s", out)
	}
	// ASCII uses box-drawing characters from StyleLight
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdown_BasicTable(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Anchor", "Status")
	tb.Row("TC001 / STEP1 / segment1", "Inserted")
	out := tb.String()

	if !strings.Contains(out, "| Anchor") {
		t.Errorf("expected markdown header with '| Anchor':\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator '---':\n%s", out)
	}
}

func TestFooterTotals(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("File", "Stubs")
	tb.Row("a.c", 2)
	tb.Row("b.c", 3)
	tb.Footer("TOTAL", 5)
	out := tb.String()

	if !strings.Contains(out, "TOTAL") || !strings.Contains(out, "5") {
		t.Errorf("expected footer totals in output:\n%s", out)
	}
}

func TestColumns_RightAlign(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Name", "Count")
	tb.Row("anchors", 12345)
	tb.Columns(format.ColumnConfig{Number: 2, Right: true})
	out := tb.String()

	if !strings.Contains(out, "12345") {
		t.Errorf("expected '12345' in output:\n%s", out)
	}
}

func TestSameData_DualFormat(t *testing.T) {
	build := func(m format.Mode) string {
		tb := format.NewTable(m)
		tb.Header("A", "B")
		tb.Row("x", "y")
		return tb.String()
	}

	ascii := build(format.ASCII)
	md := build(format.Markdown)

	if ascii == md {
		t.Error("ASCII and Markdown output should differ")
	}
	for _, out := range []string{ascii, md} {
		if !strings.Contains(out, "x") || !strings.Contains(out, "y") {
			t.Errorf("expected data in output:\n%s", out)
		}
	}
}

// --- Helper tests ---

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0.0s"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{60 * time.Second, "1m 0s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tc := range tests {
		got := format.FmtDuration(tc.in)
		if got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"ab", 3, "ab"},
		{"abcdef", 3, "abc"},
	}
	for _, tc := range tests {
		got := format.Truncate(tc.in, tc.maxLen)
		if got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}

func TestPlural(t *testing.T) {
	if format.Plural(1, "file", "files") != "file" {
		t.Error("Plural(1) should be singular")
	}
	if format.Plural(3, "file", "files") != "files" {
		t.Error("Plural(3) should be plural")
	}
}
