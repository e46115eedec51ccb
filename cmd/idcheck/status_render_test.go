package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"idcheck/internal/report"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Groups", statusError, "1 failed", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Groups:", "[ERROR] 1 failed")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Groups", statusOK, "all passed", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestRenderRunResult(t *testing.T) {
	summary := report.RunSummary{
		RunID:        "0123456789abcdef",
		Mode:         "voice",
		Total:        3,
		Succeeded:    2,
		Failed:       1,
		GroupsPassed: 1,
		GroupsFailed: 1,
		Interrupted:  true,
		Groups: []report.GroupSummary{
			{Group: "speaker-01", Total: 2, Existing: 2, Identifiers: []string{"V1"}, Status: "PASS", Reason: "all files returned the same identifier: V1", Passed: true},
			{Group: "speaker-02", Total: 1, FailedUploads: 1, Status: "FAIL", Reason: "upload errors occurred"},
		},
		EmptyGroups: []string{"speaker-03"},
		DetailLog:   "/logs/detail.txt",
		SummaryLog:  "/logs/summary.txt",
	}
	out := renderRunResult(summary, false)
	for _, want := range []string{
		"== Run 01234567 (voice) ==",
		"speaker-01",
		"upload errors occurred",
		"speaker-03:",
		"no files found for testing",
		"3 attempted, 2 succeeded, 1 failed",
		"2 tested, 1 passed, 1 failed",
		"interrupted",
		"/logs/summary.txt",
	} {
		requireContains(t, out, want)
	}
}

func TestRenderTableFillsMissingCells(t *testing.T) {
	out := renderTable(tableSpec{
		Headers: []string{"A", "B"},
		Rows:    [][]string{{"only"}},
		Footer:  []string{"", "total"},
	})
	requireContains(t, out, "only")
	requireContains(t, strings.ToLower(out), "total")
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
