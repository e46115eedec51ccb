// Package scan turns a source directory into an ordered list of upload tasks.
// Video mode reads a flat directory; voice mode reads one subfolder per group.
package scan
