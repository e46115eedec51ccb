package report

import (
	"sort"
	"time"

	"idcheck/internal/grouping"
	"idcheck/internal/verdict"
)

// GroupSummary is the structured per-group result rendered by the summary log,
// the CLI table and the JSON run report.
type GroupSummary struct {
	Group               string         `json:"group"`
	Testcase            string         `json:"testcase,omitempty"`
	User                string         `json:"user"`
	Total               int            `json:"total"`
	New                 int            `json:"new"`
	Existing            int            `json:"existing"`
	ExtractionFailed    int            `json:"extraction_failed"`
	Malformed           int            `json:"malformed"`
	FailedUploads       int            `json:"failed_uploads"`
	NewIdentifiers      map[string]int `json:"new_identifiers"`
	ExistingIdentifiers map[string]int `json:"existing_identifiers"`
	Identifiers         []string       `json:"identifiers"`
	Status              string         `json:"status"`
	Reason              string         `json:"reason"`
	Passed              bool           `json:"passed"`
}

// NewGroupSummary flattens a verdict into its reporting form.
func NewGroupSummary(v verdict.Verdict) GroupSummary {
	state := v.State
	return GroupSummary{
		Group:               state.Key.String(),
		Testcase:            state.Key.Testcase,
		User:                state.Key.User,
		Total:               state.Total,
		New:                 state.New,
		Existing:            state.Existing,
		ExtractionFailed:    state.ExtractionFailed,
		Malformed:           state.Malformed,
		FailedUploads:       state.FailedUploads,
		NewIdentifiers:      state.NewIdentifiers,
		ExistingIdentifiers: state.ExistingIdentifiers,
		Identifiers:         state.DistinctIdentifiers(),
		Status:              v.Status.String(),
		Reason:              v.Reason,
		Passed:              v.Passed(),
	}
}

// Summaries converts verdicts in order.
func Summaries(verdicts []verdict.Verdict) []GroupSummary {
	out := make([]GroupSummary, 0, len(verdicts))
	for _, v := range verdicts {
		out = append(out, NewGroupSummary(v))
	}
	return out
}

// RunSummary is the overall outcome of a run.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Mode         string         `json:"mode"`
	Endpoint     string         `json:"endpoint"`
	SourceDir    string         `json:"source_dir"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Total        int            `json:"total_files"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	GroupsPassed int            `json:"groups_passed"`
	GroupsFailed int            `json:"groups_failed"`
	Interrupted  bool           `json:"interrupted,omitempty"`
	Groups       []GroupSummary `json:"groups"`
	EmptyGroups  []string       `json:"empty_groups,omitempty"`
	DetailLog    string         `json:"detail_log"`
	SummaryLog   string         `json:"summary_log"`
}

// GroupsTested is the number of groups that received a verdict.
func (r RunSummary) GroupsTested() int {
	return r.GroupsPassed + r.GroupsFailed
}

// Passed reports whether every tested group passed and at least one was tested.
func (r RunSummary) Passed() bool {
	return r.GroupsFailed == 0 && r.GroupsPassed > 0
}

// Duration is the wall time of the run.
func (r RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// EmptyGroupNames renders empty group keys for the run summary.
func EmptyGroupNames(keys []grouping.Key) []string {
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}
	return names
}

type identifierCount struct {
	ID    string
	Count int
}

func sortedCounts(counts map[string]int) []identifierCount {
	out := make([]identifierCount, 0, len(counts))
	for id, count := range counts {
		out = append(out, identifierCount{ID: id, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
