package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (compatible; epiwatch/1.0; +outbreak monitoring)"
	DefaultFetchTimeout = 10 * time.Second

	maxBodyBytes = 10 << 20
)

// fetcher performs the single GET every adapter needs.
type fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func newFetcher(client *http.Client, userAgent string, timeout time.Duration) fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return fetcher{client: client, userAgent: userAgent, timeout: timeout}
}

func (f fetcher) get(ctx context.Context, src SourceDescriptor, accept string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, &FetchError{Source: src.Name, Kind: FailureNetwork, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: src.Name, Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Source: src.Name,
			Kind:   FailureStatus,
			Err:    fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Source: src.Name, Kind: classify(err), Err: err}
	}
	return bytes.TrimSpace(raw), nil
}

func classify(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}
