// Package uploader sends media files to the recognition API as multipart form
// uploads.
//
// Each file gets a bounded number of attempts. Transport failures and 5xx
// responses are retried after a fixed backoff; any other status is final. The
// client never returns an error for a single file: the result, including the
// failure kind, is captured in an Outcome value so the batch keeps going.
package uploader
