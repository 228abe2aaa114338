package alert

// Summarize counts alerts and picks the most frequent keyword and source.
// Ties go to whichever value appeared first.
func Summarize(alerts []Alert) Summary {
	return Summary{
		Total:      len(alerts),
		TopKeyword: mostFrequent(alerts, func(a Alert) string { return a.Keyword }),
		TopSource:  mostFrequent(alerts, func(a Alert) string { return a.Source }),
	}
}

func mostFrequent(alerts []Alert, key func(Alert) string) string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, a := range alerts {
		k := key(a)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	best, bestCount := "", 0
	for _, k := range order {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}
