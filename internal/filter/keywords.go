package filter

import "strings"

// Match returns every vocabulary term that occurs in text, compared
// case-insensitively as a plain substring. Order follows vocabulary.
func Match(text string, vocabulary []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, kw := range vocabulary {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			out = append(out, kw)
		}
	}
	return out
}
