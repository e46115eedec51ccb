package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// objectNameReplacer maps characters that object stores reject or that need
// URL escaping to safe alternatives.
var objectNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"#", "",
	"%", "",
	"{", "",
	"}", "",
	"^", "",
	"`", "",
)

// ObjectName makes a single object-key segment from a file name. Unsafe
// characters are replaced or dropped, control characters and whitespace runs
// collapse to one space, and the result is NFC-normalized. Returns "" when
// nothing usable remains.
func ObjectName(name string) string {
	name = objectNameReplacer.Replace(norm.NFC.String(name))
	var b strings.Builder
	space := false
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), " .")
}

// Slug converts a mode or run ID into a lowercase key segment. Letters and
// digits are kept (lowercased), hyphens and underscores survive, and any other
// run of characters becomes a single underscore. Returns "unknown" for input
// with nothing to keep.
func Slug(value string) string {
	var b strings.Builder
	pending := false
	for _, r := range norm.NFC.String(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pending = true
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
