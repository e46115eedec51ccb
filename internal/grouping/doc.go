// Package grouping turns a stream of classified upload results into per-group
// state.
//
// A KeyParser maps each file (video mode) or folder (voice mode) to a Key. The
// Aggregator then tallies results per key under a CountingPolicy that decides
// whether failed and malformed uploads count toward a group's total.
// Finalize returns detached copies, so verdicts can be computed from a stable
// snapshot.
package grouping
