// Package archive copies a finished run's logs and JSON report to an
// S3-compatible bucket using minio-go. Objects are keyed
// <prefix>/<mode>/<run-id>/<file>. Archiving is optional and the runner only
// logs failures.
package archive
