package uploader

import (
	"fmt"
	"net/http"
)

// FailureKind classifies why an upload did not produce a usable response.
type FailureKind int

const (
	// FailureNone means a final 2xx/3xx response was received.
	FailureNone FailureKind = iota
	// FailureTransientNetwork is a timeout or connection failure; retried.
	FailureTransientNetwork
	// FailureTransientServer is a 5xx response; retried.
	FailureTransientServer
	// FailureTerminalClient is a 4xx response; never retried.
	FailureTerminalClient
	// FailureExhaustedRetries means every attempt ended in a transient failure.
	FailureExhaustedRetries
	// FailureCancelled means the run context ended before a final response.
	FailureCancelled
	// FailureLocal covers problems reading the source file.
	FailureLocal
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTransientNetwork:
		return "transient_network"
	case FailureTransientServer:
		return "transient_server"
	case FailureTerminalClient:
		return "terminal_client"
	case FailureExhaustedRetries:
		return "exhausted_retries"
	case FailureCancelled:
		return "cancelled"
	case FailureLocal:
		return "local"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Outcome is the immutable result of uploading one file.
//
// Succeeded reports that the API returned a final (non-5xx) response; a 4xx
// therefore has Succeeded set and StatusCode populated, and it is up to the
// classifier to treat anything but 200 as a failed upload. When every attempt
// ended in a transient failure StatusCode is zero and Succeeded is false.
type Outcome struct {
	StatusCode int
	Body       string
	Attempts   int
	Succeeded  bool
	Failure    FailureKind
	// LastStatus is the status of the final attempt even when it was a 5xx
	// that exhausted the retry budget. Diagnostics only.
	LastStatus int
	// LastError is the transport error of the final attempt, if any.
	LastError error
}

// HasStatus reports whether the outcome carries a final HTTP status.
func (o Outcome) HasStatus() bool {
	return o.StatusCode != 0
}

// OK reports whether the API accepted the upload with a 200.
func (o Outcome) OK() bool {
	return o.Succeeded && o.StatusCode == http.StatusOK
}

// Attempt describes one try, reported to the AttemptObserver.
type Attempt struct {
	File       string
	Number     int
	Max        int
	StatusCode int
	Err        error
	Kind       FailureKind
	WillRetry  bool
}
