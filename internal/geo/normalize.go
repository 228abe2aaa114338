package geo

import (
	"strings"
	"unicode"
)

// normalizeKey lowercases s and collapses every run of non-alphanumerics
// into a single space.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// LabelFromAddress returns the last comma-separated part of a geocoded
// address, usually the country. Empty input gives Unknown.
func LabelFromAddress(address string) string {
	parts := strings.Split(address, ",")
	label := strings.TrimSpace(parts[len(parts)-1])
	if label == "" {
		return Unknown
	}
	return label
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
