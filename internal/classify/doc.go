// Package classify maps upload outcomes to semantic results: a new identity, an
// existing identity, an extraction failure, a malformed response, or a failed
// upload.
//
// Classifiers are pure functions of an uploader.Outcome. Anything other than a
// 200 is a failed upload; a 200 that does not decode into the expected shape
// is malformed. Nothing here returns an error or panics.
package classify
