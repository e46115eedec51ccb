package verdict

import (
	"fmt"
	"sort"
	"strings"

	"idcheck/internal/grouping"
)

// Status is the outcome for one group.
type Status int

const (
	Fail Status = iota
	Pass
)

func (s Status) String() string {
	if s == Pass {
		return "PASS"
	}
	return "FAIL"
}

// Verdict pairs a status and reason with the state it was computed from.
type Verdict struct {
	Status Status
	Reason string
	State  grouping.GroupState
}

// Passed reports whether the group passed.
func (v Verdict) Passed() bool {
	return v.Status == Pass
}

// Rules evaluates a finalized group. Implementations are pure.
type Rules interface {
	Evaluate(state grouping.GroupState) Verdict
}

// Video applies the testcase/user consistency rules: a group passes when it
// resolved to exactly one identifier, or when the new and existing identifier
// sets are identical.
type Video struct{}

// Evaluate implements Rules.
func (Video) Evaluate(state grouping.GroupState) Verdict {
	newIDs := sortedKeys(state.NewIdentifiers)
	existingIDs := sortedKeys(state.ExistingIdentifiers)

	switch {
	case len(newIDs) > 0 && len(existingIDs) > 0:
		if equalStrings(newIDs, existingIDs) {
			return pass(state, "new and existing identifiers match: %s", joinIDs(newIDs))
		}
		return fail(state, "new identifiers %s differ from existing identifiers %s", joinIDs(newIDs), joinIDs(existingIDs))
	case len(existingIDs) > 0:
		if len(existingIDs) == 1 {
			return pass(state, "all files matched existing identifier %s", existingIDs[0])
		}
		return fail(state, "multiple existing identifiers returned: %s", joinIDs(existingIDs))
	case len(newIDs) > 0:
		if len(newIDs) == 1 {
			return pass(state, "all files resolved to new identifier %s", newIDs[0])
		}
		return fail(state, "multiple new identifiers created: %s", joinIDs(newIDs))
	default:
		return fail(state, "no identifiers returned")
	}
}

// Voice applies the folder rules: no failed uploads and exactly one distinct
// identifier across every successful upload.
type Voice struct{}

// Evaluate implements Rules.
func (Voice) Evaluate(state grouping.GroupState) Verdict {
	if state.FailedUploads > 0 {
		return fail(state, "upload errors occurred")
	}
	ids := state.DistinctIdentifiers()
	switch len(ids) {
	case 0:
		return fail(state, "no identifiers returned")
	case 1:
		return pass(state, "all files returned the same identifier: %s", ids[0])
	default:
		return fail(state, "inconsistent identifiers: %s", joinIDs(ids))
	}
}

// EvaluateAll applies rules to every state, preserving order.
func EvaluateAll(rules Rules, states []grouping.GroupState) []Verdict {
	verdicts := make([]Verdict, 0, len(states))
	for _, state := range states {
		verdicts = append(verdicts, rules.Evaluate(state))
	}
	return verdicts
}

func pass(state grouping.GroupState, format string, args ...any) Verdict {
	return Verdict{Status: Pass, Reason: fmt.Sprintf(format, args...), State: state}
}

func fail(state grouping.GroupState, format string, args ...any) Verdict {
	return Verdict{Status: Fail, Reason: fmt.Sprintf(format, args...), State: state}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}
