package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"idcheck/internal/config"
	"idcheck/internal/history"
	"idcheck/internal/report"
	"idcheck/internal/services"
	"idcheck/internal/testsupport"
)

type reply struct {
	status int
	body   string
}

// fakeAPI answers each upload based on the multipart filename and counts hits.
type fakeAPI struct {
	field   string
	replies map[string]reply

	mu   sync.Mutex
	hits map[string]int
}

func newFakeAPI(t *testing.T, field string, replies map[string]reply) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{field: field, replies: replies, hits: make(map[string]int)}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, header, err := r.FormFile(a.field)
	if err != nil {
		http.Error(w, "missing file part", http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	a.hits[header.Filename]++
	a.mu.Unlock()

	rep, ok := a.replies[header.Filename]
	if !ok {
		rep = reply{status: http.StatusNotFound, body: `{"error":"unknown"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = w.Write([]byte(rep.body))
}

func (a *fakeAPI) hitCount(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[name]
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   []int
	completed []report.RunSummary
	errors    []error
}

func (n *recordingNotifier) NotifyRunStarted(_ context.Context, _ string, files int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, files)
	return nil
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, summary report.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, summary)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, err)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func fixedClock() func() time.Time {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestRunVideo(t *testing.T) {
	replies := map[string]reply{
		"Lit user alice (1).mp4": {200, `{"video":{"id":"A1 (User found)"}}`},
		"Lit user alice (2).mp4": {200, `{"video":{"id":"A1 (User found)"}}`},
		"Dark user bob (1).mp4":  {200, `{"video":{"id":"N1 (Created a new user)"}}`},
		"Dark user bob (2).mp4":  {200, `{"video":{"id":"N2 (Created a new user)"}}`},
	}
	_, srv := newFakeAPI(t, "file", replies)
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint(config.ModeVideo, srv.URL))
	source := testsupport.SourceDir(cfg, config.ModeVideo)
	for name := range replies {
		testsupport.WriteFile(t, filepath.Join(source, name), 64)
	}
	testsupport.WriteFile(t, filepath.Join(source, "notes.txt"), 8)

	store := testsupport.MustOpenHistory(t, cfg)
	notifier := &recordingNotifier{}
	r, err := New(cfg, config.ModeVideo,
		WithHistory(store),
		WithNotifier(notifier),
		WithSleeper((&sleepRecorder{}).sleep),
		WithClock(fixedClock()),
		WithRunID("run-video-1"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantTally := Tally{Total: 4, Succeeded: 4, GroupsPassed: 1, GroupsFailed: 1}
	if diff := cmp.Diff(wantTally, result.Tally); diff != "" {
		t.Fatalf("tally mismatch (-want +got):\n%s", diff)
	}

	type groupLine struct{ Group, Status, Reason string }
	var got []groupLine
	for _, g := range result.Summary.Groups {
		got = append(got, groupLine{g.Group, g.Status, g.Reason})
	}
	want := []groupLine{
		{"Dark user bob", "FAIL", "multiple new identifiers created: N1, N2"},
		{"Lit user alice", "PASS", "all files matched existing identifier A1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	if result.Summary.Passed() || result.Summary.Interrupted {
		t.Fatalf("unexpected summary flags: %+v", result.Summary)
	}

	summaryText, err := os.ReadFile(cfg.SummaryLogPath(config.ModeVideo))
	if err != nil {
		t.Fatalf("read summary log: %v", err)
	}
	for _, want := range []string{"STATUS: PASS", "STATUS: FAIL", "=== RUN RESULTS (video) ==="} {
		if !strings.Contains(string(summaryText), want) {
			t.Fatalf("summary log missing %q:\n%s", want, summaryText)
		}
	}
	detailText, err := os.ReadFile(cfg.DetailLogPath(config.ModeVideo))
	if err != nil {
		t.Fatalf("read detail log: %v", err)
	}
	if got := strings.Count(string(detailText), "HTTP Status Code: 200"); got != 4 {
		t.Fatalf("expected 4 detail entries, got %d:\n%s", got, detailText)
	}

	run, err := store.GetRun(context.Background(), "run-video-1")
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != history.RunCompleted || run.GroupsFailed != 1 || run.Total != 4 {
		t.Fatalf("unexpected history run: %+v", run)
	}
	uploads, err := store.RunUploads(context.Background(), "run-video-1")
	if err != nil {
		t.Fatalf("RunUploads: %v", err)
	}
	if len(uploads) != 4 || uploads[0].SHA256 == "" || uploads[0].Size != 64 {
		t.Fatalf("unexpected uploads: %+v", uploads)
	}

	if diff := cmp.Diff([]int{4}, notifier.started); diff != "" {
		t.Fatalf("start notifications (-want +got):\n%s", diff)
	}
	if len(notifier.completed) != 1 || notifier.completed[0].RunID != "run-video-1" {
		t.Fatalf("unexpected completion notifications: %+v", notifier.completed)
	}
}

func TestRunVoiceRetriesAndPacing(t *testing.T) {
	replies := map[string]reply{
		"a.wav": {200, `{"user_id":"V1","new_record":false}`},
		"b.wav": {200, `{"user_id":"V1","new_record":false}`},
		"c.wav": {503, `busy`},
		"d.wav": {200, `{"user_id":42,"new_record":true}`},
	}
	api, srv := newFakeAPI(t, "audio", replies)
	cfg := testsupport.NewConfig(t,
		testsupport.WithEndpoint(config.ModeVoice, srv.URL),
		testsupport.WithPacing(config.ModeVoice, 100, 10, 2),
	)
	source := testsupport.SourceDir(cfg, config.ModeVoice)
	testsupport.WriteFiles(t, filepath.Join(source, "speaker-01"), 16, "a.wav", "b.wav")
	if err := os.MkdirAll(filepath.Join(source, "speaker-02"), 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(source, "speaker-02", "readme.txt"), 4)
	testsupport.WriteFiles(t, filepath.Join(source, "speaker-03"), 16, "c.wav", "d.wav")

	sleeper := &sleepRecorder{}
	r, err := New(cfg, config.ModeVoice,
		WithHistory(testsupport.MustOpenHistory(t, cfg)),
		WithNotifier(&recordingNotifier{}),
		WithSleeper(sleeper.sleep),
		WithClock(fixedClock()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDelays := []time.Duration{
		10 * time.Millisecond,  // after a.wav
		10 * time.Millisecond,  // after b.wav
		100 * time.Millisecond, // c.wav retry 1
		100 * time.Millisecond, // c.wav retry 2
		2 * time.Second,        // cool-down after c.wav
	}
	if diff := cmp.Diff(wantDelays, sleeper.delays); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	if got := api.hitCount("c.wav"); got != 3 {
		t.Fatalf("expected 3 attempts for c.wav, got %d", got)
	}

	wantTally := Tally{Total: 4, Succeeded: 3, Failed: 1, GroupsPassed: 1, GroupsFailed: 1}
	if diff := cmp.Diff(wantTally, result.Tally); diff != "" {
		t.Fatalf("tally mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"speaker-02"}, result.Summary.EmptyGroups); diff != "" {
		t.Fatalf("empty groups mismatch (-want +got):\n%s", diff)
	}
	reasons := map[string]string{}
	for _, g := range result.Summary.Groups {
		reasons[g.Group] = g.Reason
	}
	wantReasons := map[string]string{
		"speaker-01": "all files returned the same identifier: V1",
		"speaker-03": "upload errors occurred",
	}
	if diff := cmp.Diff(wantReasons, reasons); diff != "" {
		t.Fatalf("reasons mismatch (-want +got):\n%s", diff)
	}

	summaryText, err := os.ReadFile(cfg.SummaryLogPath(config.ModeVoice))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(summaryText), "Voice ID: speaker-02 - NO FILES FOUND FOR TESTING.") {
		t.Fatalf("summary log missing empty group notice:\n%s", summaryText)
	}
}

func TestRunInterruptedBetweenFiles(t *testing.T) {
	replies := map[string]reply{
		"One user ann.mp4": {200, `{"video":{"id":"A1 (User found)"}}`},
		"Two user ann.mp4": {200, `{"video":{"id":"A1 (User found)"}}`},
	}
	api, srv := newFakeAPI(t, "file", replies)
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint(config.ModeVideo, srv.URL))
	source := testsupport.SourceDir(cfg, config.ModeVideo)
	for name := range replies {
		testsupport.WriteFile(t, filepath.Join(source, name), 8)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := testsupport.MustOpenHistory(t, cfg)
	notifier := &recordingNotifier{}
	r, err := New(cfg, config.ModeVideo,
		WithHistory(store),
		WithNotifier(notifier),
		WithRunID("run-int"),
		WithSleeper(func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Summary.Interrupted || result.Tally.Total != 1 {
		t.Fatalf("expected interrupted run with one file, got %+v", result.Tally)
	}
	if api.hitCount("Two user ann.mp4") != 0 {
		t.Fatal("second file should not have been uploaded")
	}
	run, err := store.GetRun(context.Background(), "run-int")
	if err != nil || run == nil || run.Status != history.RunInterrupted {
		t.Fatalf("expected interrupted history row, got %+v (%v)", run, err)
	}
	if len(notifier.completed) != 1 {
		t.Fatal("completion notification should still be sent")
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	r, err := New(cfg, config.ModeVideo, WithNotifier(&recordingNotifier{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Run(context.Background())
	if !errors.Is(err, services.ErrBusy) || !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected busy error, got %v", err)
	}
}

func TestRunFailsOnEmptySource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(testsupport.SourceDir(cfg, config.ModeVoice), 0o755); err != nil {
		t.Fatal(err)
	}
	notifier := &recordingNotifier{}
	r, err := New(cfg, config.ModeVoice, WithNotifier(notifier))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(notifier.errors) != 1 {
		t.Fatalf("expected one error notification, got %d", len(notifier.errors))
	}
}

func TestRunSummarisesVoiceFoldersWithoutAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := testsupport.SourceDir(cfg, config.ModeVoice)
	testsupport.WriteFile(t, filepath.Join(source, "speaker-01", "notes.txt"), 4)
	if err := os.MkdirAll(filepath.Join(source, "speaker-02"), 0o755); err != nil {
		t.Fatal(err)
	}
	notifier := &recordingNotifier{}
	r, err := New(cfg, config.ModeVoice, WithNotifier(notifier), WithSleeper((&sleepRecorder{}).sleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"speaker-01", "speaker-02"}, result.Summary.EmptyGroups); diff != "" {
		t.Fatalf("empty groups (-want +got):\n%s", diff)
	}
	if result.Summary.Total != 0 || len(result.Summary.Groups) != 0 {
		t.Fatalf("expected no uploads, got %+v", result.Summary)
	}
	summaryText, err := os.ReadFile(cfg.SummaryLogPath(config.ModeVoice))
	if err != nil {
		t.Fatalf("read summary log: %v", err)
	}
	if got := strings.Count(string(summaryText), "NO FILES FOUND FOR TESTING"); got != 2 {
		t.Fatalf("expected two empty-folder notices, got %d:\n%s", got, summaryText)
	}
	if len(notifier.errors) != 0 {
		t.Fatalf("unexpected error notifications: %v", notifier.errors)
	}
}

func TestRunRejectsInvalidMode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint(config.ModeVideo, "ftp://example"))
	r, err := New(cfg, config.ModeVideo, WithNotifier(&recordingNotifier{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
