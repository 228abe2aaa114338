package discovery

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageAdapter treats every hyperlink on an HTML page as a candidate. Pages
// carry no timestamps and no body text.
type PageAdapter struct {
	fetcher fetcher
}

func NewPageAdapter(client *http.Client, userAgent string, timeout time.Duration) *PageAdapter {
	return &PageAdapter{fetcher: newFetcher(client, userAgent, timeout)}
}

func (a *PageAdapter) Fetch(ctx context.Context, src SourceDescriptor) ([]RawCandidate, error) {
	raw, err := a.fetcher.get(ctx, src, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &FetchError{Source: src.Name, Kind: FailureParse, Err: err}
	}

	var out []RawCandidate
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := resolveLink(src.URL, href)
		if !ok {
			return
		}
		out = append(out, RawCandidate{
			Title: strings.Join(strings.Fields(s.Text()), " "),
			Link:  link,
		})
	})
	return out, nil
}
