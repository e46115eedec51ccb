// Package config loads, normalizes, and validates idcheck configuration data.
//
// It supplies repository defaults for both run modes, expands user paths
// (including tilde shortcuts), reads TOML files, and honours environment
// overrides such as IDCHECK_VIDEO_ENDPOINT. Mode-specific completeness is
// checked with ValidateMode so a config that only describes the voice API is
// still valid for `idcheck run voice`.
package config
