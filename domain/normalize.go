package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeText trims surrounding whitespace and upper-cases the first rune.
// Titles and descriptions are stored in this normalized form.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	return string(upper) + s[size:]
}
