package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"idcheck/internal/archive"
	"idcheck/internal/config"
	"idcheck/internal/fileutil"
	"idcheck/internal/grouping"
	"idcheck/internal/history"
	"idcheck/internal/logging"
	"idcheck/internal/notifications"
	"idcheck/internal/report"
	"idcheck/internal/scan"
	"idcheck/internal/services"
	"idcheck/internal/uploader"
	"idcheck/internal/verdict"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another idcheck run is in progress")

// Result is what a finished (or interrupted) run produced.
type Result struct {
	Summary  report.RunSummary
	Tally    Tally
	Verdicts []verdict.Verdict
}

// Runner drives one batch: scan, upload, classify, aggregate, judge, report.
type Runner struct {
	cfg      *config.Config
	mode     config.Mode
	strategy Strategy

	logger     *slog.Logger
	httpClient *http.Client
	sleeper    func(context.Context, time.Duration) error
	now        func() time.Time
	newRunID   func() string

	notifier notifications.Service
	store    *history.Store
	archiver archive.Archiver
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHTTPClient overrides the HTTP client used for uploads.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.httpClient = client
	}
}

// WithSleeper replaces every wait (retry backoff, file delay, cool-down).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(r *Runner) {
		if sleeper != nil {
			r.sleeper = sleeper
		}
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.newRunID = func() string { return id }
		}
	}
}

// WithNotifier overrides the notification service built from config.
func WithNotifier(notifier notifications.Service) Option {
	return func(r *Runner) {
		if notifier != nil {
			r.notifier = notifier
		}
	}
}

// WithHistory uses an already open history store. The caller keeps ownership.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithArchiver overrides the archiver built from config.
func WithArchiver(archiver archive.Archiver) Option {
	return func(r *Runner) {
		if archiver != nil {
			r.archiver = archiver
		}
	}
}

// WithStrategy overrides the per-mode strategy.
func WithStrategy(strategy Strategy) Option {
	return func(r *Runner) {
		r.strategy = strategy
	}
}

// New constructs a runner for mode.
func New(cfg *config.Config, mode config.Mode, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "new", "config is required", nil)
	}
	r := &Runner{
		cfg:      cfg,
		mode:     mode,
		strategy: StrategyFor(mode),
		logger:   logging.NewNop(),
		sleeper:  uploader.SleepWithContext,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	if r.archiver == nil {
		archiver, err := archive.New(cfg.Archive)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "runner", "new", "archive client", err)
		}
		r.archiver = archiver
	}
	r.logger = logging.NewComponentLogger(r.logger, "runner")
	return r, nil
}

// Run executes the batch. Setup failures (config, lock, scan, logs) return an
// error; per-file failures never do. A cancelled context stops the loop
// between files and the partial run is still summarised.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "validate", "", err)
	}
	if err := r.cfg.ValidateMode(r.mode); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "validate", "", err)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "prepare", "", err)
	}

	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "lock", r.cfg.LockPath(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "runner", "lock", r.cfg.LockPath(), ErrRunInProgress)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	runID := r.newRunID()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithMode(ctx, r.mode.String())
	logger := logging.WithContext(ctx, r.logger)

	mc := r.cfg.Mode(r.mode)
	scanned, err := r.strategy.Scan(mc.SourceDir, mc.Extensions, r.strategy.Parser)
	if err != nil {
		r.notifyError(ctx, logger, err)
		return nil, err
	}
	for _, name := range scanned.Skipped {
		logger.Debug("skipping non-directory entry", logging.String("entry", name))
	}
	if len(scanned.Tasks) == 0 && len(scanned.EmptyGroups) == 0 {
		err := services.Wrap(services.ErrConfiguration, "runner", "scan", "no files to upload in "+mc.SourceDir, nil)
		r.notifyError(ctx, logger, err)
		return nil, err
	}

	session, err := r.openSession()
	if err != nil {
		r.notifyError(ctx, logger, err)
		return nil, err
	}
	defer session.close(logger)

	started := r.now()
	if err := session.detail.WriteSessionHeader(started, runID); err != nil {
		return nil, err
	}
	if err := session.summary.WriteSessionHeader(started, runID); err != nil {
		return nil, err
	}

	if session.store != nil {
		if err := session.store.BeginRun(ctx, history.Run{
			ID:        runID,
			Mode:      r.mode.String(),
			Endpoint:  mc.Endpoint,
			SourceDir: mc.SourceDir,
			StartedAt: started,
		}); err != nil {
			logger.Warn("history unavailable for this run", logging.Error(err))
			session.dropStore(logger)
		}
	}

	logger.Info("run started",
		logging.Int("files", len(scanned.Tasks)),
		logging.Int("groups", scanned.Groups()),
		logging.String("endpoint", mc.Endpoint),
		logging.String("source_dir", mc.SourceDir),
	)
	if err := r.notifier.NotifyRunStarted(ctx, r.mode.String(), len(scanned.Tasks)); err != nil {
		logger.Warn("run start notification failed", logging.Error(err))
	}

	client := r.newUploadClient(ctx, mc)
	aggregator := grouping.NewAggregator(r.strategy.Policy)
	var tally Tally
	interrupted := false

	for i, task := range scanned.Tasks {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		outcome := r.processTask(ctx, client, aggregator, session, &tally, task, i, len(scanned.Tasks))
		if outcome.Failure == uploader.FailureCancelled {
			interrupted = true
			break
		}
		if i == len(scanned.Tasks)-1 {
			break
		}
		if err := r.sleeper(ctx, r.pause(mc, outcome)); err != nil {
			interrupted = true
			break
		}
	}

	verdicts := verdict.EvaluateAll(r.strategy.Rules, aggregator.Finalize())
	for _, v := range verdicts {
		tally.RecordVerdict(v)
	}
	groups := report.Summaries(verdicts)

	summary := report.RunSummary{
		RunID:        runID,
		Mode:         r.mode.String(),
		Endpoint:     mc.Endpoint,
		SourceDir:    mc.SourceDir,
		StartedAt:    started,
		FinishedAt:   r.now(),
		Total:        tally.Total,
		Succeeded:    tally.Succeeded,
		Failed:       tally.Failed,
		GroupsPassed: tally.GroupsPassed,
		GroupsFailed: tally.GroupsFailed,
		Interrupted:  interrupted,
		Groups:       groups,
		EmptyGroups:  report.EmptyGroupNames(scanned.EmptyGroups),
		DetailLog:    session.detail.Path(),
		SummaryLog:   session.summary.Path(),
	}

	r.writeSummary(logger, session.summary, summary)
	r.finishHistory(ctx, logger, session.store, summary)
	r.archiveRun(ctx, logger, summary)

	logger.Info("run finished",
		logging.Int("files", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("groups_passed", summary.GroupsPassed),
		logging.Int("groups_failed", summary.GroupsFailed),
		logging.Bool("interrupted", interrupted),
		logging.Duration("duration", summary.Duration()),
	)
	// ctx may already be cancelled; the completion notice should still go out.
	if err := r.notifier.NotifyRunCompleted(context.WithoutCancel(ctx), summary); err != nil {
		logger.Warn("run completion notification failed", logging.Error(err))
	}

	return &Result{Summary: summary, Tally: tally, Verdicts: verdicts}, nil
}

func (r *Runner) processTask(
	ctx context.Context,
	client *uploader.Client,
	aggregator *grouping.Aggregator,
	session *session,
	tally *Tally,
	task scan.Task,
	index, total int,
) uploader.Outcome {
	ctx = services.WithGroup(ctx, task.Key.String())
	ctx = services.WithFile(ctx, task.Label)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("uploading", logging.String("progress", fmt.Sprintf("%d/%d", index+1, total)))

	outcome := client.Upload(ctx, task.Path)
	result := r.strategy.Classifier.Classify(outcome)
	if err := aggregator.Record(task.Key, result); err != nil {
		logger.Error("aggregate result", logging.Error(err))
	}
	tally.RecordUpload(outcome)

	attrs := []logging.Attr{
		logging.Int("attempts", outcome.Attempts),
		logging.StatusCode(outcome.StatusCode),
		logging.String("classification", result.String()),
	}
	if outcome.OK() {
		logger.Info("upload succeeded", logging.Args(attrs...)...)
	} else {
		attrs = append(attrs, logging.String("failure", outcome.Failure.String()))
		if outcome.LastError != nil {
			attrs = append(attrs, logging.Error(outcome.LastError))
		}
		logger.Warn("upload failed", logging.Args(attrs...)...)
	}

	recordedAt := r.now()
	if err := session.detail.WriteEntry(report.Entry{
		Group:   task.Key.String(),
		File:    task.Label,
		Time:    recordedAt,
		Outcome: outcome,
		Result:  result,
	}); err != nil {
		logger.Warn("detail log write failed", logging.Error(err))
	}

	if session.store != nil {
		row := history.Upload{
			RunID:          runIDFrom(ctx),
			Group:          task.Key.String(),
			File:           task.Label,
			Attempts:       outcome.Attempts,
			StatusCode:     outcome.StatusCode,
			Failure:        outcome.Failure.String(),
			Classification: result.Kind.String(),
			Identifier:     result.Identifier,
			RecordedAt:     recordedAt,
		}
		if fp, err := fileutil.Digest(task.Path); err == nil {
			row.Size = fp.Size
			row.SHA256 = fp.SHA256
		}
		if err := session.store.RecordUpload(context.WithoutCancel(ctx), row); err != nil {
			logger.Warn("history write failed", logging.Error(err))
		}
	}
	return outcome
}

// pause is the wait after a file: the cool-down after a failed upload when one
// is configured, otherwise the regular inter-file delay.
func (r *Runner) pause(mc config.ModeConfig, outcome uploader.Outcome) time.Duration {
	if !outcome.OK() && mc.FailureCooldown() > 0 {
		return mc.FailureCooldown()
	}
	return mc.FileDelay()
}

func (r *Runner) newUploadClient(ctx context.Context, mc config.ModeConfig) *uploader.Client {
	opts := []uploader.Option{
		uploader.WithSleeper(r.sleeper),
		uploader.WithAttemptObserver(func(a uploader.Attempt) {
			attrs := []logging.Attr{
				logging.Attempt(a.Number, a.Max),
				logging.StatusCode(a.StatusCode),
				logging.String("kind", a.Kind.String()),
				logging.Bool("will_retry", a.WillRetry),
			}
			if a.Err != nil {
				attrs = append(attrs, logging.Error(a.Err))
			}
			logging.WithContext(ctx, r.logger).Warn("upload attempt failed", logging.Args(attrs...)...)
		}),
	}
	if r.httpClient != nil {
		opts = append(opts, uploader.WithHTTPClient(r.httpClient))
	}
	return uploader.NewClient(uploader.Config{
		Endpoint:     mc.Endpoint,
		FieldName:    mc.FieldName,
		ContentType:  mc.ContentType,
		UserAgent:    r.cfg.Upload.UserAgent,
		MaxAttempts:  r.cfg.Upload.MaxAttempts,
		RetryBackoff: mc.RetryBackoff(),
		Timeout:      r.cfg.UploadTimeout(),
	}, opts...)
}

func (r *Runner) writeSummary(logger *slog.Logger, log *report.SummaryLog, summary report.RunSummary) {
	for _, group := range summary.Groups {
		if err := log.WriteGroup(group); err != nil {
			logger.Warn("summary log write failed", logging.Error(err))
			return
		}
	}
	for _, name := range summary.EmptyGroups {
		if err := log.WriteEmptyGroup(name); err != nil {
			logger.Warn("summary log write failed", logging.Error(err))
			return
		}
	}
	if err := log.WriteRunSummary(summary); err != nil {
		logger.Warn("summary log write failed", logging.Error(err))
	}
}

func (r *Runner) finishHistory(ctx context.Context, logger *slog.Logger, store *history.Store, summary report.RunSummary) {
	if store == nil {
		return
	}
	status := history.RunCompleted
	if summary.Interrupted {
		status = history.RunInterrupted
	}
	groups := make([]history.GroupVerdict, 0, len(summary.Groups))
	for _, g := range summary.Groups {
		groups = append(groups, history.GroupVerdict{
			Group:            g.Group,
			Total:            g.Total,
			New:              g.New,
			Existing:         g.Existing,
			ExtractionFailed: g.ExtractionFailed,
			Malformed:        g.Malformed,
			FailedUploads:    g.FailedUploads,
			Identifiers:      g.Identifiers,
			Status:           g.Status,
			Reason:           g.Reason,
		})
	}
	err := store.FinishRun(context.WithoutCancel(ctx), history.Run{
		ID:           summary.RunID,
		Status:       status,
		FinishedAt:   summary.FinishedAt,
		Total:        summary.Total,
		Succeeded:    summary.Succeeded,
		Failed:       summary.Failed,
		GroupsPassed: summary.GroupsPassed,
		GroupsFailed: summary.GroupsFailed,
	}, groups)
	if err != nil {
		logger.Warn("history finish failed", logging.Error(err))
	}
}

func (r *Runner) archiveRun(ctx context.Context, logger *slog.Logger, summary report.RunSummary) {
	if !r.archiver.Enabled() {
		return
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Warn("encode run report failed", logging.Error(err))
		return
	}
	keys, err := r.archiver.Archive(context.WithoutCancel(ctx), summary.Mode, summary.RunID, []archive.Artifact{
		{Name: "detail.txt", Path: summary.DetailLog},
		{Name: "summary.txt", Path: summary.SummaryLog},
		{Name: "report.json", Data: data, ContentType: "application/json"},
	})
	if err != nil {
		logger.Warn("archive upload failed", logging.Error(err))
		return
	}
	logger.Info("run archived", logging.Int("objects", len(keys)))
}

func (r *Runner) notifyError(ctx context.Context, logger *slog.Logger, err error) {
	logger.Error("run aborted", logging.Error(err), logging.String("category", services.Category(err)))
	if notifyErr := r.notifier.NotifyError(context.WithoutCancel(ctx), err, r.mode.String()+" run"); notifyErr != nil {
		logger.Warn("error notification failed", logging.Error(notifyErr))
	}
}

func runIDFrom(ctx context.Context) string {
	id, _ := services.RunIDFromContext(ctx)
	return id
}
