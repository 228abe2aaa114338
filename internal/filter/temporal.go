package filter

import "time"

// Published dates are read from a fixed-width head of the raw string, in
// the RFC 1123 shape without the zone. The zone is ignored; the time is UTC.
var publishedLayouts = []struct {
	layout string
	width  int
}{
	{"Mon, 02 Jan 2006 15:04:05", 25},
	{"Mon, 2 Jan 2006 15:04:05", 24},
}

// ParsePublished parses the head of a raw published string.
func ParsePublished(raw string) (time.Time, bool) {
	for _, l := range publishedLayouts {
		head := raw
		if len(head) > l.width {
			head = head[:l.width]
		}
		t, err := time.ParseInLocation(l.layout, head, time.UTC)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InRange reports whether the calendar date of publishedRaw lies within
// [start, end], both ends inclusive. Missing or unparseable input is out.
func InRange(publishedRaw *string, start, end time.Time) bool {
	if publishedRaw == nil {
		return false
	}
	t, ok := ParsePublished(*publishedRaw)
	if !ok {
		return false
	}
	d := Date(t)
	return !d.Before(Date(start)) && !d.After(Date(end))
}

// Date truncates t to its calendar date at UTC midnight, keeping t's own
// year/month/day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
