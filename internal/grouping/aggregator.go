package grouping

import (
	"errors"
	"sort"

	"idcheck/internal/classify"
)

// ErrFinalized is returned by Record once Finalize has been called.
var ErrFinalized = errors.New("aggregator already finalized")

// CountingPolicy decides which results count toward a group's Total.
// Identity and extraction results always count.
type CountingPolicy struct {
	CountUploadFailures bool
	CountMalformed      bool
}

// VideoPolicy counts only successfully classified files.
func VideoPolicy() CountingPolicy {
	return CountingPolicy{}
}

// VoicePolicy counts every processed file.
func VoicePolicy() CountingPolicy {
	return CountingPolicy{CountUploadFailures: true, CountMalformed: true}
}

func (p CountingPolicy) counts(kind classify.Kind) bool {
	switch kind {
	case classify.UploadFailed:
		return p.CountUploadFailures
	case classify.Malformed:
		return p.CountMalformed
	default:
		return true
	}
}

// GroupState is the accumulated tally for one group.
type GroupState struct {
	Key                 Key
	Total               int
	New                 int
	Existing            int
	ExtractionFailed    int
	Malformed           int
	FailedUploads       int
	NewIdentifiers      map[string]int
	ExistingIdentifiers map[string]int
}

func newGroupState(key Key) *GroupState {
	return &GroupState{
		Key:                 key,
		NewIdentifiers:      map[string]int{},
		ExistingIdentifiers: map[string]int{},
	}
}

// DistinctIdentifiers returns the sorted union of new and existing identifiers.
func (g GroupState) DistinctIdentifiers() []string {
	seen := make(map[string]struct{}, len(g.NewIdentifiers)+len(g.ExistingIdentifiers))
	for id := range g.NewIdentifiers {
		seen[id] = struct{}{}
	}
	for id := range g.ExistingIdentifiers {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *GroupState) clone() GroupState {
	out := *g
	out.NewIdentifiers = copyCounts(g.NewIdentifiers)
	out.ExistingIdentifiers = copyCounts(g.ExistingIdentifiers)
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Aggregator accumulates classified results per group. It is used from the
// single sequential run loop and is not safe for concurrent use.
type Aggregator struct {
	policy    CountingPolicy
	groups    map[Key]*GroupState
	order     []Key
	finalized bool
}

// NewAggregator returns an empty aggregator using policy.
func NewAggregator(policy CountingPolicy) *Aggregator {
	return &Aggregator{
		policy: policy,
		groups: make(map[Key]*GroupState),
	}
}

// Record folds one result into the group for key, creating it on first use.
func (a *Aggregator) Record(key Key, result classify.Result) error {
	if a.finalized {
		return ErrFinalized
	}
	state, ok := a.groups[key]
	if !ok {
		state = newGroupState(key)
		a.groups[key] = state
		a.order = append(a.order, key)
	}
	if a.policy.counts(result.Kind) {
		state.Total++
	}
	switch result.Kind {
	case classify.NewIdentity:
		state.New++
		state.NewIdentifiers[result.Identifier]++
	case classify.ExistingIdentity:
		state.Existing++
		state.ExistingIdentifiers[result.Identifier]++
	case classify.ExtractionFailed:
		state.ExtractionFailed++
	case classify.Malformed:
		state.Malformed++
	case classify.UploadFailed:
		state.FailedUploads++
	}
	return nil
}

// Len reports the number of groups seen so far.
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Finalize freezes the aggregator and returns a copy of every group in
// first-seen order. Calling it again returns the same snapshot.
func (a *Aggregator) Finalize() []GroupState {
	a.finalized = true
	states := make([]GroupState, 0, len(a.order))
	for _, key := range a.order {
		states = append(states, a.groups[key].clone())
	}
	return states
}
