package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"idcheck/internal/history"
	"idcheck/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := store.BeginRun(ctx, history.Run{
		ID:        "run-aaaa",
		Mode:      "voice",
		Endpoint:  "https://voice.example/identify",
		SourceDir: "/data/voice",
		StartedAt: started,
	}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-aaaa")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil || run.Status != history.RunRunning || run.Finished() {
		t.Fatalf("unexpected run after begin: %#v", run)
	}

	uploads := []history.Upload{
		{RunID: "run-aaaa", Group: "speaker-01", File: "a.wav", Size: 4, SHA256: "abc", Attempts: 1, StatusCode: 200, Failure: "none", Classification: "existing_identity", Identifier: "V1", RecordedAt: started.Add(time.Second)},
		{RunID: "run-aaaa", Group: "speaker-01", File: "b.wav", Size: 4, Attempts: 3, Failure: "exhausted_retries", Classification: "upload_failed", RecordedAt: started.Add(2 * time.Second)},
	}
	for _, upload := range uploads {
		if err := store.RecordUpload(ctx, upload); err != nil {
			t.Fatalf("RecordUpload: %v", err)
		}
	}

	groups := []history.GroupVerdict{
		{Group: "speaker-01", Total: 2, Existing: 1, FailedUploads: 1, Identifiers: []string{"V1"}, Status: "FAIL", Reason: "upload errors occurred"},
		{Group: "speaker-02", Total: 1, New: 1, Identifiers: nil, Status: "FAIL", Reason: "no identifiers returned"},
	}
	finished := started.Add(time.Minute)
	if err := store.FinishRun(ctx, history.Run{
		ID:           "run-aaaa",
		FinishedAt:   finished,
		Total:        3,
		Succeeded:    2,
		Failed:       1,
		GroupsFailed: 2,
	}, groups); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err = store.GetRun(ctx, "run-aaaa")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunCompleted || !run.FinishedAt.Equal(finished) || run.Total != 3 || run.GroupsFailed != 2 {
		t.Fatalf("unexpected finished run: %#v", run)
	}
	if run.Endpoint != "https://voice.example/identify" || run.Mode != "voice" {
		t.Fatalf("run metadata not persisted: %#v", run)
	}

	gotUploads, err := store.RunUploads(ctx, "run-aaaa")
	if err != nil {
		t.Fatalf("RunUploads: %v", err)
	}
	if diff := cmp.Diff(uploads, gotUploads); diff != "" {
		t.Fatalf("uploads mismatch (-want +got):\n%s", diff)
	}

	gotGroups, err := store.RunGroups(ctx, "run-aaaa")
	if err != nil {
		t.Fatalf("RunGroups: %v", err)
	}
	wantGroups := []history.GroupVerdict{
		{RunID: "run-aaaa", Group: "speaker-01", Total: 2, Existing: 1, FailedUploads: 1, Identifiers: []string{"V1"}, Status: "FAIL", Reason: "upload errors occurred"},
		{RunID: "run-aaaa", Group: "speaker-02", Total: 1, New: 1, Identifiers: []string{}, Status: "FAIL", Reason: "no identifiers returned"},
	}
	if diff := cmp.Diff(wantGroups, gotGroups); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := store.BeginRun(ctx, history.Run{ID: id, Mode: "video", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestGetRunByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"abc123", "abd456"} {
		if err := store.BeginRun(ctx, history.Run{ID: id, Mode: "video"}); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}

	run, err := store.GetRun(ctx, "abc")
	if err != nil || run == nil || run.ID != "abc123" {
		t.Fatalf("GetRun(abc) = %#v, %v", run, err)
	}
	if _, err := store.GetRun(ctx, "ab"); !errors.Is(err, history.ErrAmbiguousRunID) {
		t.Fatalf("expected ErrAmbiguousRunID, got %v", err)
	}
	run, err = store.GetRun(ctx, "zzz")
	if err != nil || run != nil {
		t.Fatalf("expected no run, got %#v, %v", run, err)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if err := store.FinishRun(context.Background(), history.Run{ID: "missing"}, nil); err == nil {
		t.Fatal("expected error finishing an unknown run")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.BeginRun(context.Background(), history.Run{ID: "persisted", Mode: "voice"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	run, err := reopened.GetRun(context.Background(), "persisted")
	if err != nil || run == nil {
		t.Fatalf("expected persisted run, got %#v, %v", run, err)
	}
	if reopened.Path() != cfg.HistoryPath() {
		t.Fatalf("Path() = %q, want %q", reopened.Path(), cfg.HistoryPath())
	}
}
