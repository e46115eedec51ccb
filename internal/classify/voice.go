package classify

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"idcheck/internal/uploader"
)

// Voice classifies flat responses shaped like {"user_id": "...", "new_record": bool}.
type Voice struct{}

// NewVoice returns a voice classifier.
func NewVoice() Voice {
	return Voice{}
}

// Classify implements Classifier.
func (Voice) Classify(outcome uploader.Outcome) Result {
	if !outcome.OK() {
		return Result{Kind: UploadFailed}
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(outcome.Body)))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil || payload == nil {
		return Result{Kind: Malformed}
	}
	// The body must hold exactly one JSON value.
	if _, err := decoder.Token(); err != io.EOF {
		return Result{Kind: Malformed}
	}
	raw, ok := payload["user_id"]
	if !ok {
		return Result{Kind: Malformed}
	}
	id, ok := identifierString(raw)
	if !ok {
		return Result{Kind: Malformed}
	}
	if truthy(payload["new_record"]) {
		return Result{Kind: NewIdentity, Identifier: id}
	}
	return Result{Kind: ExistingIdentity, Identifier: id}
}

// identifierString accepts string and numeric identifiers.
func identifierString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// truthy follows JSON truthiness: false, null, 0, "", [] and {} are false.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
