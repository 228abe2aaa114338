package alert

import "strings"

// Dedupe drops alerts whose source, link and keyword repeat an earlier
// alert. Runs do not dedupe unless configured to.
func Dedupe(in []Alert) []Alert {
	seen := make(map[string]struct{}, len(in))
	out := make([]Alert, 0, len(in))
	for _, a := range in {
		k := a.Source + "\x00" + normalizeURL(a.Link) + "\x00" + strings.ToLower(a.Keyword)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// normalizeURL strips query and fragment and lowercases.
func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.Index(u, "?"); i > 0 {
		u = u[:i]
	}
	if i := strings.Index(u, "#"); i > 0 {
		u = u[:i]
	}
	return strings.ToLower(u)
}
