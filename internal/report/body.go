package report

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FormatBody pretty-prints JSON bodies with a two-space indent, keeping key
// order and non-ASCII text as received. Anything else is returned verbatim.
func FormatBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "(empty response body)"
	}
	if !json.Valid([]byte(trimmed)) {
		return body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return body
	}
	return buf.String()
}
