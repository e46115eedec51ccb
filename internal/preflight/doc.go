// Package preflight provides readiness checks run by "idcheck check" before a
// long batch: the configuration is valid for the mode, the source tree is
// readable and has files, the log directory is writable, and the API answers.
package preflight
