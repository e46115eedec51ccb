package runner

import (
	"log/slog"

	"idcheck/internal/history"
	"idcheck/internal/logging"
	"idcheck/internal/report"
	"idcheck/internal/services"
)

// session holds the sinks a run writes to.
type session struct {
	detail    *report.DetailLog
	summary   *report.SummaryLog
	store     *history.Store
	ownsStore bool
}

func (r *Runner) openSession() (*session, error) {
	detail, err := report.OpenDetailLog(r.cfg.DetailLogPath(r.mode), r.mode)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "open detail log", "", err)
	}
	summary, err := report.OpenSummaryLog(r.cfg.SummaryLogPath(r.mode), r.mode)
	if err != nil {
		_ = detail.Close()
		return nil, services.Wrap(services.ErrConfiguration, "runner", "open summary log", "", err)
	}

	s := &session{detail: detail, summary: summary, store: r.store}
	if s.store == nil {
		store, err := history.Open(r.cfg)
		if err != nil {
			r.logger.Warn("history unavailable for this run", logging.Error(err))
		} else {
			s.store = store
			s.ownsStore = true
		}
	}
	return s, nil
}

func (s *session) close(logger *slog.Logger) {
	if err := s.detail.Close(); err != nil {
		logger.Warn("close detail log", logging.Error(err))
	}
	if err := s.summary.Close(); err != nil {
		logger.Warn("close summary log", logging.Error(err))
	}
	s.dropStore(logger)
}

// dropStore detaches the history store, closing it when the session opened it.
func (s *session) dropStore(logger *slog.Logger) {
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("close history", logging.Error(err))
		}
	}
	s.store = nil
	s.ownsStore = false
}
