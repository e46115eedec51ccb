// Package logging assembles structured slog loggers used across idcheck.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, modes, groups, and file names. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
