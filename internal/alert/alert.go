// Package alert defines the alert records a run produces and the summary
// computed over them.
package alert

// Alert is one (candidate, keyword) match. Date is the source's own
// representation and is never reparsed.
type Alert struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Keyword string `json:"keyword"`
	Date    string `json:"date"`
	Country string `json:"country"`
	Link    string `json:"link"`
}

type Summary struct {
	Total      int    `json:"total"`
	TopKeyword string `json:"top_keyword"`
	TopSource  string `json:"top_source"`
}

// SourceReport records what one source contributed to a run.
type SourceReport struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Candidates  int    `json:"candidates"`
	Admitted    int    `json:"admitted"`
	Alerts      int    `json:"alerts"`
	Error       string `json:"error,omitempty"`
	FailureKind string `json:"failure_kind,omitempty"`
}

func (r SourceReport) Failed() bool {
	return r.Error != ""
}

// AlertSet is the output of a run. Alerts keep discovery order: source
// order first, then entry order within a source.
type AlertSet struct {
	RunID   string         `json:"run_id"`
	Start   string         `json:"start"`
	End     string         `json:"end"`
	Alerts  []Alert        `json:"alerts"`
	Summary Summary        `json:"summary"`
	Sources []SourceReport `json:"sources"`
}

func (s AlertSet) Empty() bool {
	return len(s.Alerts) == 0
}
