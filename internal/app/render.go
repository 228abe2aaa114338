package app

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"epiwatch/internal/alert"
	"epiwatch/internal/discovery"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderAlerts prints the alert table and the summary, or a notice when the
// set is empty.
func renderAlerts(w io.Writer, set alert.AlertSet) {
	for _, s := range set.Sources {
		if s.Failed() {
			fmt.Fprintf(w, "warning: source %s unavailable (%s)\n", s.Name, s.FailureKind)
		}
	}
	if set.Empty() {
		fmt.Fprintln(w, "No alerts found.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Keyword", "Source", "Country", "Title", "Link"})
	for _, a := range set.Alerts {
		t.AppendRow(table.Row{a.Date, a.Keyword, a.Source, a.Country, a.Title, a.Link})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 60},
	})
	t.Render()

	s := newTable(w)
	s.AppendHeader(table.Row{"Total Alerts", "Top Keyword", "Top Source"})
	s.AppendRow(table.Row{set.Summary.Total, set.Summary.TopKeyword, set.Summary.TopSource})
	s.Render()
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSources(w io.Writer, sources []discovery.SourceDescriptor) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Kind", "URL", "Country"})
	for _, s := range sources {
		country := s.Country
		if country == "" {
			country = "(resolved)"
		}
		t.AppendRow(table.Row{s.Name, s.Kind, s.URL, country})
	}
	t.Render()
}

func renderProbe(w io.Writer, results []ProbeResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Kind", "Status", "Candidates", "Elapsed"})
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed: " + string(discovery.KindOf(r.Err))
		}
		t.AppendRow(table.Row{r.Source.Name, r.Source.Kind, status, r.Candidates, r.Elapsed.Round(time.Millisecond)})
	}
	t.Render()
}
