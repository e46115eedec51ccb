// Package runner drives one identity-recognition test batch end to end.
//
// A run takes the process-wide lock, scans the mode's source directory,
// uploads files one at a time with the configured pacing, classifies each
// response, aggregates results per group and evaluates a verdict for every
// group. Detail and summary logs, the history database, notifications and the
// optional object-storage archive are all fed from the same pass.
package runner
