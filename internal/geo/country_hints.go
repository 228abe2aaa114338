package geo

import (
	"strings"
	"unicode"
)

// worthGeocoding is a cheap pre-check before spending a geocoder request:
// place names are capitalized, so text without any capitalized word of at
// least three letters is not sent.
func worthGeocoding(text string) bool {
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		r := []rune(tok)
		if len(r) < 3 || !unicode.IsUpper(r[0]) {
			continue
		}
		letters := 0
		for _, x := range r {
			if unicode.IsLetter(x) {
				letters++
			}
		}
		if letters >= 3 {
			return true
		}
	}
	// scripts without case (Arabic, CJK, ...) always qualify
	for _, r := range text {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) && !unicode.IsLower(r) {
			return true
		}
	}
	return false
}
