// Package history persists runs, per-file uploads and group verdicts in SQLite
// so past runs can be listed and inspected after their text logs have rotated.
//
// The database lives next to the logs as history.db. Schema changes bump the
// version in schema.go; users delete the database to adopt the new schema.
package history
