package main

import (
	"encoding/json"
	"strings"
	"testing"

	"idcheck/internal/report"
)

func TestHistoryListAndShow(t *testing.T) {
	env := setupCLITestEnv(t, cliEnvOptions{})
	out, _, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	srv := videoAPI(t, map[string]string{
		"Lit user ann.mp4": `{"video":{"id":"A1 (User found)"}}`,
	})
	env = setupCLITestEnv(t, cliEnvOptions{videoEndpoint: srv.URL})
	writeVideoFiles(t, env, "Lit user ann.mp4")
	out, _, err = runCLI(t, env, "run", "video", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary report.RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run output: %v", err)
	}

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, summary.RunID[:8])
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, env, "history", "show", summary.RunID[:8])
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Lit user ann")
	requireContains(t, out, "all files matched existing identifier A1")
	requireContains(t, out, "existing_identity")
	requireContains(t, strings.ToLower(out), "1/1 passed")

	if _, _, err := runCLI(t, env, "history", "show", "does-not-exist"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
