// Package slug derives URL-safe document keys from review titles.
package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxLength bounds a slug so it stays a valid file name on every platform.
const MaxLength = 200

// Generate lowercases title, drops every rune that is not an ASCII letter,
// digit, whitespace or hyphen, turns whitespace runs into single hyphens and
// trims hyphens from both ends. Titles without letters or digits yield "".
func Generate(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}

	s := b.String()
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// Valid reports whether s is already in slug form: non-empty, lowercase
// letters, digits and single interior hyphens only.
func Valid(s string) bool {
	if s == "" || len(s) > MaxLength {
		return false
	}
	prevHyphen := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevHyphen = false
		case c == '-':
			if prevHyphen {
				return false
			}
			prevHyphen = true
		default:
			return false
		}
	}
	return !prevHyphen
}

// WithSuffix returns base for n <= 1 and "base-n" otherwise. base is
// shortened as needed so the result never exceeds MaxLength.
func WithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	suffix := "-" + strconv.Itoa(n)
	if len(base)+len(suffix) > MaxLength {
		base = strings.TrimRight(base[:MaxLength-len(suffix)], "-")
	}
	return base + suffix
}
