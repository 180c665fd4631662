package vmerrors

import (
	"strings"
	"testing"

	"github.com/pklcore/pklcore/internal/source"
)

func span(line, col int) source.Span {
	return source.Span{File: "test.pkl", Start: source.Position{Line: line, Column: col}}
}

func TestReportShape(t *testing.T) {
	err := New(KindCircularReference, span(3, 5), "circular reference forcing %s", "a").
		PushFrame(span(4, 1), "test#b").
		PushFrame(span(3, 1), "test#a")

	report := err.Report(false)
	lines := strings.Split(report, "\n")
	if lines[0] != "circularReference: circular reference forcing a" {
		t.Fatalf("first line = %q", lines[0])
	}
	if !strings.Contains(report, "at test.pkl:3:5") {
		t.Fatalf("missing primary location:\n%s", report)
	}
	// Frames render outermost-last push first.
	ia := strings.Index(report, "in test#a")
	ib := strings.Index(report, "in test#b")
	if ia < 0 || ib < 0 || ia > ib {
		t.Fatalf("frame order wrong:\n%s", report)
	}
}

func TestReportCaretUsesSourceLine(t *testing.T) {
	err := New(KindTypeMismatch, span(1, 5), "boom").
		WithSourceLine(func(source.Span) string { return "x = oops" })
	report := err.Report(false)
	if !strings.Contains(report, "x = oops") {
		t.Fatalf("missing source line:\n%s", report)
	}
	if !strings.Contains(report, "^") {
		t.Fatalf("missing caret:\n%s", report)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(KindUserThrow, span(1, 1), "nope")
	if !Is(err, KindUserThrow) {
		t.Fatalf("Is must match the error's kind")
	}
	if Is(err, KindIOError) {
		t.Fatalf("Is must not match other kinds")
	}
}
