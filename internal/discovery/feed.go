package discovery

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedAdapter reads RSS/Atom/JSON feeds. Published dates are kept verbatim.
type FeedAdapter struct {
	fetcher fetcher
}

func NewFeedAdapter(client *http.Client, userAgent string, timeout time.Duration) *FeedAdapter {
	return &FeedAdapter{fetcher: newFetcher(client, userAgent, timeout)}
}

func (a *FeedAdapter) Fetch(ctx context.Context, src SourceDescriptor) ([]RawCandidate, error) {
	raw, err := a.fetcher.get(ctx, src, "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &FetchError{Source: src.Name, Kind: FailureParse, Err: errors.New("empty feed body")}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &FetchError{Source: src.Name, Kind: FailureParse, Err: err}
	}

	out := make([]RawCandidate, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		link, ok := entryLink(src.URL, it)
		if !ok {
			continue
		}

		c := RawCandidate{
			Title: strings.TrimSpace(it.Title),
			Link:  link,
		}
		if it.Description != "" {
			c.Body = strPtr(it.Description)
		}
		if it.Published != "" {
			c.PublishedRaw = strPtr(it.Published)
		}
		out = append(out, c)
	}
	return out, nil
}

// entryLink prefers the entry link and falls back to a URL-shaped GUID.
func entryLink(base string, it *gofeed.Item) (string, bool) {
	if l, ok := resolveLink(base, it.Link); ok {
		return l, true
	}
	if strings.HasPrefix(it.GUID, "http") {
		return resolveLink(base, it.GUID)
	}
	return "", false
}

// resolveLink makes href absolute against base. Only http(s) results count.
func resolveLink(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		b, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		ref = b.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	if ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}
