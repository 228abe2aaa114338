package export

import (
	"fmt"

	"github.com/gingfrederik/docx"

	"epiwatch/internal/alert"
)

const separator = "--------------------------------------------------"

// SaveDOCX writes a readable report: header, run window, summary, then one
// block per alert.
func SaveDOCX(path string, set alert.AlertSet) error {
	f := docx.NewFile()

	p := f.AddParagraph()
	run := p.AddText("EpiWatch Alert Report")
	run.Size(20)

	p = f.AddParagraph()
	run = p.AddText(fmt.Sprintf("Window: %s to %s", set.Start, set.End))
	run.Size(10)
	run.Color("808080")

	f.AddParagraph()
	f.AddParagraph().AddText(fmt.Sprintf("Total Alerts: %d", set.Summary.Total))
	if set.Summary.Total > 0 {
		f.AddParagraph().AddText("Top Keyword: " + set.Summary.TopKeyword)
		f.AddParagraph().AddText("Top Source: " + set.Summary.TopSource)
	}
	for _, s := range set.Sources {
		if s.Failed() {
			p = f.AddParagraph()
			run = p.AddText(fmt.Sprintf("Source %s unavailable (%s)", s.Name, s.FailureKind))
			run.Color("C00000")
		}
	}
	f.AddParagraph().AddText(separator)

	if set.Empty() {
		f.AddParagraph().AddText("No alerts found.")
	}

	for _, a := range set.Alerts {
		p = f.AddParagraph()
		run = p.AddText(a.Title)
		run.Size(14)

		p = f.AddParagraph()
		run = p.AddText(fmt.Sprintf("%s | %s | %s | %s", a.Date, a.Keyword, a.Source, a.Country))
		run.Size(10)
		run.Color("808080")

		p = f.AddParagraph()
		run = p.AddText(a.Link)
		run.Size(10)
		run.Color("0000FF")

		f.AddParagraph()
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}
