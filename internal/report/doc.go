// Package report writes the human-readable run artifacts: an append-only
// detail log with one record per uploaded file and a summary log with the
// per-group verdicts and overall totals. GroupSummary and RunSummary are the
// structured forms shared with the CLI and the archived JSON report.
package report
