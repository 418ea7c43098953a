package clifmt

import (
	"bytes"
	"strings"
	"testing"
)

func TestWrapRunes(t *testing.T) {
	lines := wrapRunes("alpha beta gamma", 10)
	if len(lines) != 2 {
		t.Fatalf("wrapRunes() lines = %d, want 2", len(lines))
	}
	if lines[0] != "alpha beta" || lines[1] != "gamma" {
		t.Fatalf("wrapRunes() = %v", lines)
	}

	long := wrapRunes("abcdefghij", 4)
	if len(long) != 3 || long[0] != "abcd" || long[1] != "efgh" || long[2] != "ij" {
		t.Fatalf("wrapRunes(long word) = %v", long)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Fatalf("padRight() = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abcdef" {
		t.Fatalf("padRight() overflow = %q", got)
	}
}

func TestPrintNameDetailTable(t *testing.T) {
	prev := colorEnabled
	colorEnabled = false
	defer func() { colorEnabled = prev }()

	var buf bytes.Buffer
	PrintNameDetailTable(&buf, NameDetailTableOptions{
		Title: "Reports",
		Rows: []NameDetailRow{
			{Name: "chat-1", Detail: "drafted"},
			{Name: "chat-2", Detail: ""},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "Reports (2)") {
		t.Fatalf("output missing title: %q", out)
	}
	if !strings.Contains(out, "chat-1") || !strings.Contains(out, "drafted") {
		t.Fatalf("output missing row: %q", out)
	}
	if !strings.Contains(out, "No details provided.") {
		t.Fatalf("output missing empty detail fallback: %q", out)
	}
}

func TestPrintNameDetailTableEmpty(t *testing.T) {
	prev := colorEnabled
	colorEnabled = false
	defer func() { colorEnabled = prev }()

	var buf bytes.Buffer
	PrintNameDetailTable(&buf, NameDetailTableOptions{Title: "Reports", EmptyText: "No reports yet."})
	if !strings.Contains(buf.String(), "No reports yet.") {
		t.Fatalf("output missing empty text: %q", buf.String())
	}
}
