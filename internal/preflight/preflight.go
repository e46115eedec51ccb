package preflight

import (
	"context"

	"idcheck/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the readiness checks for a run in the given mode.
func RunAll(ctx context.Context, cfg *config.Config, mode config.Mode) []Result {
	if cfg == nil {
		return nil
	}

	mc := cfg.Mode(mode)
	results := []Result{
		CheckConfig(cfg, mode),
		CheckReadableDirectory("Source directory", mc.SourceDir),
		CheckSourceFiles(cfg, mode),
		CheckWritableDirectory("Log directory", cfg.Paths.LogDir),
	}
	if mc.Endpoint != "" {
		results = append(results, CheckEndpoint(ctx, "API endpoint", mc.Endpoint, endpointTimeout(cfg)))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
