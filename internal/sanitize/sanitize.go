// Package sanitize cleans text coming out of extraction before it is chunked.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var excessNewlines = regexp.MustCompile(`\n{4,}`)

// Sanitize removes control characters (keeping tab, newline and carriage
// return), the replacement character, the Specials block and invalid UTF-8;
// normalizes line endings to \n; collapses runs of four or more newlines to
// three and trims surrounding whitespace.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r == utf8.RuneError && size <= 1 {
			continue
		}
		if dropped(r) {
			continue
		}
		b.WriteRune(r)
	}
	s := strings.ReplaceAll(b.String(), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n\n")
	return strings.TrimSpace(s)
}

func dropped(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	case r >= 0xFFF0 && r <= 0xFFFF:
		// Specials, which includes U+FFFD.
		return true
	}
	return false
}
