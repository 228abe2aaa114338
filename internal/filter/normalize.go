// Package filter holds the per-candidate steps of a run: normalization,
// keyword matching and the publication-date window.
package filter

import (
	"strings"

	"epiwatch/internal/discovery"
)

// AlertCandidate is the canonical shape the filters work on. Text is the
// title, followed by the body when there is one.
type AlertCandidate struct {
	Source       string
	Kind         discovery.SourceKind
	Title        string
	Text         string
	PublishedRaw *string
	Link         string
}

func Normalize(raw discovery.RawCandidate, src discovery.SourceDescriptor) AlertCandidate {
	text := raw.Title
	if raw.Body != nil {
		text = raw.Title + " " + *raw.Body
	}
	return AlertCandidate{
		Source:       src.Name,
		Kind:         src.Kind,
		Title:        raw.Title,
		Text:         text,
		PublishedRaw: raw.PublishedRaw,
		Link:         raw.Link,
	}
}

// NormalizeVocabulary trims terms and drops empties and case-insensitive
// duplicates, keeping first-seen order.
func NormalizeVocabulary(terms []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
