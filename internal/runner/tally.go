package runner

import (
	"idcheck/internal/uploader"
	"idcheck/internal/verdict"
)

// Tally accumulates run-wide counters as files and groups are processed.
type Tally struct {
	Total        int
	Succeeded    int
	Failed       int
	GroupsPassed int
	GroupsFailed int
}

// RecordUpload counts one processed file. Only a 200 counts as a success.
func (t *Tally) RecordUpload(outcome uploader.Outcome) {
	t.Total++
	if outcome.OK() {
		t.Succeeded++
		return
	}
	t.Failed++
}

// RecordVerdict counts one evaluated group.
func (t *Tally) RecordVerdict(v verdict.Verdict) {
	if v.Passed() {
		t.GroupsPassed++
		return
	}
	t.GroupsFailed++
}
