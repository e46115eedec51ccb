package grouping

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// UnknownKey is the bucket for video files whose name does not follow the
// "<testcase> user <user>" convention.
var UnknownKey = Key{Testcase: "Unknown", User: "Unknown"}

const userDelimiter = " user "

// Key identifies a group. Folder-mode keys leave Testcase empty.
type Key struct {
	Testcase string
	User     string
}

// String renders the key the way it appears in summaries.
func (k Key) String() string {
	if k.Testcase == "" {
		return k.User
	}
	return k.Testcase + userDelimiter + k.User
}

// KeyParser derives a group key from a file or folder label.
type KeyParser interface {
	Parse(label string) Key
}

// FilenameKeyParser parses names like "Lighting low user alice (2).mp4" into
// {Testcase: "Lighting low", User: "alice"}.
type FilenameKeyParser struct {
	// Delimiter separates testcase from user; defaults to " user ".
	Delimiter string
}

// Parse implements KeyParser.
func (p FilenameKeyParser) Parse(label string) Key {
	delimiter := p.Delimiter
	if delimiter == "" {
		delimiter = userDelimiter
	}
	base := normalize(strings.TrimSuffix(label, filepath.Ext(label)))
	testcase, rawUser, found := strings.Cut(base, delimiter)
	if !found {
		return UnknownKey
	}
	user, _, _ := strings.Cut(rawUser, "(")
	user = strings.TrimRight(strings.TrimSpace(user), " -_.")
	return Key{
		Testcase: strings.TrimSpace(testcase),
		User:     user,
	}
}

// FolderKeyParser uses the folder name itself as the key.
type FolderKeyParser struct{}

// Parse implements KeyParser.
func (FolderKeyParser) Parse(label string) Key {
	return Key{User: normalize(label)}
}

// normalize applies NFC so visually identical names from different
// filesystems compare equal.
func normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
