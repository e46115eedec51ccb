// Package verdict computes the pass/fail outcome of a finalized group.
//
// Video groups pass when the API resolved every file of a testcase/user pair to
// one identifier, or when the set of newly created identifiers equals the set
// of matched ones. Voice groups pass when no upload failed and every file
// returned the same identifier.
package verdict
