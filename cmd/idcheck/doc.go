// Package main hosts the idcheck CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the slog logger and
// hands off to internal packages: run drives the upload pipeline, check runs
// preflight probes, history reads the SQLite run log and test-notify exercises
// ntfy. Keep commands thin and extend the internal packages first.
package main
