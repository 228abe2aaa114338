package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed data/countries.json
var defaultDataset []byte

type DatasetEntry struct {
	ISO2    string   `json:"iso2"`
	Aliases []string `json:"aliases"`
}

// CountryMatcher finds country mentions in text using a name/alias dataset.
type CountryMatcher struct {
	phrases []string          // normalized phrases, longest first
	toCanon map[string]string // phrase -> canonical name
}

// DefaultCountryMatcher uses the dataset compiled into the binary.
func DefaultCountryMatcher() *CountryMatcher {
	m, err := NewCountryMatcher(defaultDataset)
	if err != nil {
		panic(fmt.Sprintf("embedded country dataset: %v", err))
	}
	return m
}

// LoadCountryMatcher reads a dataset file in the same format as the
// embedded one.
func LoadCountryMatcher(path string) (*CountryMatcher, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return NewCountryMatcher(data)
}

func NewCountryMatcher(data []byte) (*CountryMatcher, error) {
	// {"Canada": {"iso2":"CA","aliases":[...]}, ...}
	raw := map[string]DatasetEntry{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse country dataset: %w", err)
	}

	toCanon := map[string]string{}
	phrases := make([]string, 0, len(raw)*2)

	for canon, entry := range raw {
		canon = strings.TrimSpace(canon)
		if canon == "" || strings.TrimSpace(entry.ISO2) == "" {
			continue
		}

		add := func(s string) {
			k := normalizeKey(s)
			if k == "" {
				return
			}
			if _, exists := toCanon[k]; !exists {
				toCanon[k] = canon
				phrases = append(phrases, k)
			}
		}

		add(canon)
		for _, a := range entry.Aliases {
			add(a)
		}
	}

	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) == len(phrases[j]) {
			return phrases[i] < phrases[j]
		}
		return len(phrases[i]) > len(phrases[j])
	})

	return &CountryMatcher{phrases: phrases, toCanon: toCanon}, nil
}

// FindCountry returns the country mentioned earliest in text. At the same
// position the longer phrase wins, so "Papua New Guinea" beats "Guinea".
func (m *CountryMatcher) FindCountry(text string) (string, bool) {
	t := " " + normalizeKey(text) + " "
	best, bestAt := "", -1

	for _, p := range m.phrases {
		at := strings.Index(t, " "+p+" ")
		if at < 0 {
			continue
		}
		if bestAt < 0 || at < bestAt {
			best, bestAt = m.toCanon[p], at
		}
	}
	return best, bestAt >= 0
}
