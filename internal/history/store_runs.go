package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAmbiguousRunID is returned when a run ID prefix matches several runs.
var ErrAmbiguousRunID = errors.New("ambiguous run id")

const runColumns = "id, mode, endpoint, source_dir, status, started_at, finished_at, total_files, succeeded, failed, groups_passed, groups_failed, error_message"

// BeginRun records a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("begin run: id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return s.execWithoutResultRetry(ctx,
		`INSERT INTO runs (id, mode, endpoint, source_dir, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Mode,
		nullableString(run.Endpoint),
		nullableString(run.SourceDir),
		RunRunning,
		formatTime(run.StartedAt),
	)
}

// RecordUpload appends one per-file row.
func (s *Store) RecordUpload(ctx context.Context, upload Upload) error {
	if upload.RecordedAt.IsZero() {
		upload.RecordedAt = time.Now()
	}
	err := s.execWithoutResultRetry(ctx,
		`INSERT INTO uploads (
            run_id, group_key, file_name, file_size, file_sha256, attempts,
            status_code, failure, classification, identifier, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.RunID,
		upload.Group,
		upload.File,
		upload.Size,
		nullableString(upload.SHA256),
		upload.Attempts,
		nullableInt(upload.StatusCode),
		upload.Failure,
		upload.Classification,
		nullableString(upload.Identifier),
		formatTime(upload.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// FinishRun stores the final tallies and group verdicts in one transaction.
func (s *Store) FinishRun(ctx context.Context, run Run, groups []GroupVerdict) error {
	ctx = ensureContext(ctx)
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.Status == "" || run.Status == RunRunning {
		run.Status = RunCompleted
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin finish tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`UPDATE runs SET status = ?, finished_at = ?, total_files = ?, succeeded = ?, failed = ?,
                groups_passed = ?, groups_failed = ?, error_message = ? WHERE id = ?`,
			run.Status,
			formatTime(run.FinishedAt),
			run.Total,
			run.Succeeded,
			run.Failed,
			run.GroupsPassed,
			run.GroupsFailed,
			nullableString(run.ErrorMessage),
			run.ID,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("finish run %s: not found", run.ID)
		}

		for i, group := range groups {
			identifiers := group.Identifiers
			if identifiers == nil {
				identifiers = []string{}
			}
			encoded, err := json.Marshal(identifiers)
			if err != nil {
				return fmt.Errorf("encode identifiers: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO group_verdicts (
                    run_id, position, group_key, total, new_count, existing_count,
                    extraction_failed, malformed, failed_uploads, identifiers_json, status, reason
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, i, group.Group, group.Total, group.New, group.Existing,
				group.ExtractionFailed, group.Malformed, group.FailedUploads, string(encoded),
				group.Status, group.Reason,
			); err != nil {
				return fmt.Errorf("insert group verdict: %w", err)
			}
		}
		return tx.Commit()
	})
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun resolves a full run ID or a unique prefix. It returns nil when no run
// matches.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	ctx = ensureContext(ctx)
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", idOrPrefix)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE substr(id, 1, ?) = ? ORDER BY started_at DESC LIMIT 2",
		len(idOrPrefix), idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		match, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousRunID, idOrPrefix)
	}
}

// RunGroups returns the verdicts of a run in their recorded order.
func (s *Store) RunGroups(ctx context.Context, runID string) ([]GroupVerdict, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_key, total, new_count, existing_count, extraction_failed, malformed,
                failed_uploads, identifiers_json, status, reason
         FROM group_verdicts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list group verdicts: %w", err)
	}
	defer rows.Close()

	var groups []GroupVerdict
	for rows.Next() {
		group := GroupVerdict{RunID: runID}
		var identifiers string
		if err := rows.Scan(&group.Group, &group.Total, &group.New, &group.Existing,
			&group.ExtractionFailed, &group.Malformed, &group.FailedUploads, &identifiers,
			&group.Status, &group.Reason); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(identifiers), &group.Identifiers); err != nil {
			return nil, fmt.Errorf("decode identifiers: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// RunUploads returns the per-file rows of a run in insertion order.
func (s *Store) RunUploads(ctx context.Context, runID string) ([]Upload, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_key, file_name, file_size, file_sha256, attempts, status_code,
                failure, classification, identifier, recorded_at
         FROM uploads WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var (
			upload     = Upload{RunID: runID}
			sha        sql.NullString
			statusCode sql.NullInt64
			identifier sql.NullString
			recorded   string
		)
		if err := rows.Scan(&upload.Group, &upload.File, &upload.Size, &sha, &upload.Attempts,
			&statusCode, &upload.Failure, &upload.Classification, &identifier, &recorded); err != nil {
			return nil, err
		}
		upload.SHA256 = sha.String
		upload.StatusCode = int(statusCode.Int64)
		upload.Identifier = identifier.String
		if ts, err := parseTimeString(recorded); err == nil {
			upload.RecordedAt = ts
		}
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		endpoint    sql.NullString
		sourceDir   sql.NullString
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Mode,
		&endpoint,
		&sourceDir,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.Total,
		&run.Succeeded,
		&run.Failed,
		&run.GroupsPassed,
		&run.GroupsFailed,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.Endpoint = endpoint.String
	run.SourceDir = sourceDir.String
	run.Status = RunStatus(status)
	run.ErrorMessage = errorMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = finished
		}
	}
	return &run, nil
}
