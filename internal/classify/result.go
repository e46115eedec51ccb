package classify

import (
	"fmt"

	"idcheck/internal/uploader"
)

// Kind is the semantic outcome of one upload.
type Kind int

const (
	// UploadFailed: no 200 response (exhausted retries, 4xx, local error).
	UploadFailed Kind = iota
	// Malformed: a 200 whose body is not JSON or has an unrecognized shape.
	Malformed
	// ExtractionFailed: the API could not extract a subject from the media.
	ExtractionFailed
	// NewIdentity: the API created a new identity for the subject.
	NewIdentity
	// ExistingIdentity: the API matched an identity it already knew.
	ExistingIdentity
)

func (k Kind) String() string {
	switch k {
	case UploadFailed:
		return "upload_failed"
	case Malformed:
		return "malformed"
	case ExtractionFailed:
		return "extraction_failed"
	case NewIdentity:
		return "new_identity"
	case ExistingIdentity:
		return "existing_identity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is a tagged variant; Identifier is only set for NewIdentity and
// ExistingIdentity.
type Result struct {
	Kind       Kind
	Identifier string
}

// HasIdentifier reports whether the result carries an identifier.
func (r Result) HasIdentifier() bool {
	return r.Kind == NewIdentity || r.Kind == ExistingIdentity
}

func (r Result) String() string {
	if r.HasIdentifier() {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Identifier)
	}
	return r.Kind.String()
}

// Classifier turns an upload outcome into a Result. Implementations must be
// pure and total: every outcome maps to exactly one Result.
type Classifier interface {
	Classify(outcome uploader.Outcome) Result
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(uploader.Outcome) Result

// Classify implements Classifier.
func (f ClassifierFunc) Classify(outcome uploader.Outcome) Result {
	return f(outcome)
}
