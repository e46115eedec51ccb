// Package services defines shared utilities consumed by the run pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, modes, groups, and file names for
//     logging.
//   - Structured error markers plus the Wrap helper so setup failures carry a
//     consistent category (validation, configuration, busy, ...).
//
// Per-file upload problems never surface as errors; they are folded into
// outcome values by the uploader and classifier instead.
package services
