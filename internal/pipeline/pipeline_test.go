package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epiwatch/internal/alert"
	"epiwatch/internal/discovery"
	"epiwatch/internal/geo"
	"epiwatch/internal/logger"
	"epiwatch/internal/pipeline"
)

type fakeFetcher map[string]fetchOutcome

type fetchOutcome struct {
	candidates []discovery.RawCandidate
	err        error
}

func (f fakeFetcher) Fetch(_ context.Context, src discovery.SourceDescriptor) ([]discovery.RawCandidate, error) {
	out, ok := f[src.Name]
	if !ok {
		return nil, &discovery.FetchError{Source: src.Name, Kind: discovery.FailureNetwork, Err: errors.New("unreachable")}
	}
	return out.candidates, out.err
}

type countingResolver struct {
	calls atomic.Int32
	label string
}

func (r *countingResolver) Resolve(context.Context, string) string {
	r.calls.Add(1)
	return r.label
}

func ptr(s string) *string { return &s }

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedNow() time.Time { return time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC) }

func feed(name string) discovery.SourceDescriptor {
	return discovery.SourceDescriptor{Name: name, Kind: discovery.KindFeed, URL: "https://example.org/" + name}
}

func newPipeline(f discovery.Adapter, r geo.LocationResolver, opts pipeline.Options) *pipeline.Pipeline {
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return pipeline.New(f, r, opts, logger.NewNop(), pipeline.NewMetrics(nil))
}

func TestRun_EbolaFluScenario(t *testing.T) {
	f := fakeFetcher{
		"WHO": {candidates: []discovery.RawCandidate{
			{Title: "Ebola and flu in X", PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT"), Link: "https://who.int/1"},
		}},
	}
	r := &countingResolver{label: "Nigeria"}
	p := newPipeline(f, r, pipeline.Options{})

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO")},
		Vocabulary: []string{"ebola", "flu"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	require.NoError(t, err)
	require.Len(t, set.Alerts, 2)

	assert.Equal(t, "ebola", set.Alerts[0].Keyword)
	assert.Equal(t, "flu", set.Alerts[1].Keyword)
	for _, a := range set.Alerts {
		assert.Equal(t, "Nigeria", a.Country)
		assert.Equal(t, "WHO", a.Source)
		assert.Equal(t, "Fri, 01 Mar 2024 10:00:00 GMT", a.Date)
		assert.Equal(t, "https://who.int/1", a.Link)
	}
	assert.Equal(t, int32(1), r.calls.Load(), "location resolved once per candidate")
	assert.Equal(t, 2, set.Summary.Total)
	assert.Equal(t, "ebola", set.Summary.TopKeyword)
	assert.Equal(t, "WHO", set.Summary.TopSource)
	assert.NotEmpty(t, set.RunID)
	assert.Equal(t, "2024-03-01", set.Start)
}

func TestRun_SingleKeywordScenario(t *testing.T) {
	f := fakeFetcher{
		"WHO": {candidates: []discovery.RawCandidate{
			{Title: "Ebola outbreak reported", PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT"), Link: "https://who.int/2"},
		}},
	}
	p := newPipeline(f, geo.Fixed("DR Congo"), pipeline.Options{})

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO")},
		Vocabulary: []string{"ebola", "flu"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	require.NoError(t, err)
	require.Len(t, set.Alerts, 1)
	assert.Equal(t, "ebola", set.Alerts[0].Keyword)
	assert.Equal(t, "Ebola outbreak reported", set.Alerts[0].Title)
	assert.Equal(t, "DR Congo", set.Alerts[0].Country)
	assert.Equal(t, 1, set.Summary.Total)
	assert.Equal(t, 1, set.Sources[0].Alerts)
}

func TestRun_FiltersDiscardCandidates(t *testing.T) {
	f := fakeFetcher{
		"CDC": {candidates: []discovery.RawCandidate{
			{Title: "Measles update", PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT")},
			{Title: "Ebola outside window", PublishedRaw: ptr("Thu, 29 Feb 2024 23:59:59 GMT")},
			{Title: "Ebola, no date"},
			{Title: "Ebola, garbage date", PublishedRaw: ptr("yesterday")},
			{Title: "Quiet day", Body: ptr("ebola drill"), PublishedRaw: ptr("Sat, 02 Mar 2024 08:00:00 GMT")},
		}},
	}
	p := newPipeline(f, geo.Fixed(geo.Unknown), pipeline.Options{})

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("CDC")},
		Vocabulary: []string{"ebola"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-02"),
	})
	require.NoError(t, err)
	require.Len(t, set.Alerts, 1)
	assert.Equal(t, "Quiet day", set.Alerts[0].Title)
	assert.Equal(t, geo.Unknown, set.Alerts[0].Country)
	assert.Equal(t, 5, set.Sources[0].Candidates)
	assert.Equal(t, 1, set.Sources[0].Admitted)
	assert.Equal(t, 1, set.Sources[0].Alerts)
}

func TestRun_PageCandidatesUseRunDate(t *testing.T) {
	page := discovery.SourceDescriptor{Name: "Sabq", Kind: discovery.KindPage, URL: "https://sabq.org/health", Country: "Saudi Arabia"}
	f := fakeFetcher{
		"Sabq": {candidates: []discovery.RawCandidate{
			{Title: "MERS case reported", Link: "https://sabq.org/a"},
			{Title: "Weather", Link: "https://sabq.org/b"},
		}},
	}
	r := &countingResolver{label: "Elsewhere"}
	p := newPipeline(f, r, pipeline.Options{})

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{page},
		Vocabulary: []string{"MERS"},
		Start:      day("2020-01-01"),
		End:        day("2020-01-01"),
	})
	require.NoError(t, err)
	require.Len(t, set.Alerts, 1)
	assert.Equal(t, "2024-03-02", set.Alerts[0].Date)
	assert.Equal(t, "Saudi Arabia", set.Alerts[0].Country)
	assert.Equal(t, int32(0), r.calls.Load(), "fixed country skips resolution")
}

func TestRun_SourceFailureIsIsolated(t *testing.T) {
	f := fakeFetcher{
		"WHO": {candidates: []discovery.RawCandidate{
			{Title: "Cholera spreads", PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT"), Link: "https://who.int/c"},
		}},
		"BBC": {err: &discovery.FetchError{Source: "BBC", Kind: discovery.FailureStatus, Err: errors.New("503")}},
	}
	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)
	p := pipeline.New(f, geo.Fixed("Yemen"), pipeline.Options{Now: fixedNow}, logger.NewNop(), metrics)

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("BBC"), feed("WHO"), feed("Gone")},
		Vocabulary: []string{"cholera"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	require.NoError(t, err)
	require.Len(t, set.Alerts, 1)
	assert.Equal(t, "WHO", set.Alerts[0].Source)

	require.Len(t, set.Sources, 3)
	assert.Equal(t, "status", set.Sources[0].FailureKind)
	assert.False(t, set.Sources[1].Failed())
	assert.Equal(t, "network", set.Sources[2].FailureKind)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues("BBC", "status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues("WHO", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Alerts.WithLabelValues("WHO")))
}

func TestRun_OrderFollowsSourcesThenEntries(t *testing.T) {
	f := fakeFetcher{}
	var sources []discovery.SourceDescriptor
	for s := 0; s < 4; s++ {
		name := fmt.Sprintf("src%d", s)
		sources = append(sources, feed(name))
		var cands []discovery.RawCandidate
		for e := 0; e < 3; e++ {
			cands = append(cands, discovery.RawCandidate{
				Title:        fmt.Sprintf("plague %d-%d", s, e),
				PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT"),
			})
		}
		f[name] = fetchOutcome{candidates: cands}
	}
	p := newPipeline(f, geo.Fixed(geo.Unknown), pipeline.Options{MaxConcurrentFetches: 2, GeoConcurrency: 3})

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    sources,
		Vocabulary: []string{"plague"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	require.NoError(t, err)
	require.Len(t, set.Alerts, 12)
	for i, a := range set.Alerts {
		assert.Equal(t, fmt.Sprintf("plague %d-%d", i/3, i%3), a.Title)
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	f := fakeFetcher{
		"WHO": {candidates: []discovery.RawCandidate{
			{Title: "Zika and dengue", PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT"), Link: "https://who.int/z"},
			{Title: "Dengue again", PublishedRaw: ptr("Fri, 01 Mar 2024 11:00:00 GMT"), Link: "https://who.int/d"},
		}},
	}
	p := newPipeline(f, geo.Fixed("Brazil"), pipeline.Options{})
	req := pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO")},
		Vocabulary: []string{"zika", "dengue"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	}

	first, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Alerts, second.Alerts)
	assert.Equal(t, first.Summary, second.Summary)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_EmptyResult(t *testing.T) {
	p := newPipeline(fakeFetcher{"WHO": {}}, nil, pipeline.Options{})

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO")},
		Vocabulary: []string{"anthrax"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	require.NoError(t, err)
	assert.True(t, set.Empty())
	assert.Equal(t, alert.Summary{}, set.Summary)
}

func TestRun_Dedupe(t *testing.T) {
	f := fakeFetcher{
		"WHO": {candidates: []discovery.RawCandidate{
			{Title: "Polio found", PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT"), Link: "https://who.int/p?x=1"},
			{Title: "Polio found (updated)", PublishedRaw: ptr("Fri, 01 Mar 2024 12:00:00 GMT"), Link: "https://who.int/p"},
		}},
	}
	req := pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO")},
		Vocabulary: []string{"polio"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	}

	set, err := newPipeline(f, nil, pipeline.Options{}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, set.Alerts, 2)

	set, err = newPipeline(f, nil, pipeline.Options{Dedupe: true}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, set.Alerts, 1)
	assert.Equal(t, 1, set.Sources[0].Alerts)
}

func TestRun_InvalidRequest(t *testing.T) {
	calls := 0
	f := discoveryFunc(func() { calls++ })
	p := newPipeline(f, nil, pipeline.Options{})

	_, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO")},
		Vocabulary: []string{" ", ""},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	assert.ErrorIs(t, err, pipeline.ErrInvalidRequest)

	_, err = p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO")},
		Vocabulary: []string{"ebola"},
		Start:      day("2024-03-02"),
		End:        day("2024-03-01"),
	})
	assert.ErrorIs(t, err, pipeline.ErrInvalidRequest)
	assert.Zero(t, calls, "no source fetched for an invalid request")
}

// stallingFetcher blocks the named source until ctx is done.
type stallingFetcher struct {
	fakeFetcher
	stall string
}

func (f stallingFetcher) Fetch(ctx context.Context, src discovery.SourceDescriptor) ([]discovery.RawCandidate, error) {
	if src.Name != f.stall {
		return f.fakeFetcher.Fetch(ctx, src)
	}
	<-ctx.Done()
	return nil, &discovery.FetchError{Source: src.Name, Kind: discovery.FailureTimeout, Err: ctx.Err()}
}

func TestRun_TimeoutCutsOffStalledSource(t *testing.T) {
	f := stallingFetcher{
		fakeFetcher: fakeFetcher{
			"WHO": {candidates: []discovery.RawCandidate{
				{Title: "Cholera in Yemen", PublishedRaw: ptr("Fri, 01 Mar 2024 10:00:00 GMT")},
			}},
		},
		stall: "Slow",
	}
	p := newPipeline(f, geo.Fixed("Yemen"), pipeline.Options{Timeout: 50 * time.Millisecond})

	started := time.Now()
	set, err := p.Run(context.Background(), pipeline.Request{
		Sources:    []discovery.SourceDescriptor{feed("WHO"), feed("Slow")},
		Vocabulary: []string{"cholera"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)

	require.Len(t, set.Alerts, 1)
	assert.Equal(t, "WHO", set.Alerts[0].Source)
	require.Len(t, set.Sources, 2)
	assert.Empty(t, set.Sources[0].FailureKind)
	assert.Equal(t, "timeout", set.Sources[1].FailureKind)
	assert.Contains(t, set.Sources[1].Error, context.DeadlineExceeded.Error())
}

type discoveryFunc func()

func (f discoveryFunc) Fetch(context.Context, discovery.SourceDescriptor) ([]discovery.RawCandidate, error) {
	f()
	return nil, nil
}

func TestRun_EndToEndWithRegistry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Anthrax in cattle</title><link>/news/1</link><description>Officials in Kenya</description><pubDate>Fri, 01 Mar 2024 09:00:00 GMT</pubDate></item>
<item><title>Anthrax last year</title><link>/news/2</link><pubDate>Wed, 01 Mar 2023 09:00:00 GMT</pubDate></item>
</channel></rss>`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/a">Anthrax alert</a><a href="/b">Sports</a></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	registry := discovery.NewRegistry(srv.Client(), "epiwatch-test", 2*time.Second)
	resolver := geo.NewHybridResolver(geo.DefaultCountryMatcher(), nil, nil, time.Second, nil)
	p := newPipeline(registry, resolver, pipeline.Options{Timeout: 10 * time.Second})

	set, err := p.Run(context.Background(), pipeline.Request{
		Sources: []discovery.SourceDescriptor{
			{Name: "Feed", Kind: discovery.KindFeed, URL: srv.URL + "/rss"},
			{Name: "Broken", Kind: discovery.KindFeed, URL: srv.URL + "/broken"},
			{Name: "Page", Kind: discovery.KindPage, URL: srv.URL + "/health"},
		},
		Vocabulary: []string{"anthrax"},
		Start:      day("2024-03-01"),
		End:        day("2024-03-01"),
	})
	require.NoError(t, err)
	require.Len(t, set.Alerts, 2)

	assert.Equal(t, "Feed", set.Alerts[0].Source)
	assert.Equal(t, srv.URL+"/news/1", set.Alerts[0].Link)
	assert.Equal(t, "Kenya", set.Alerts[0].Country)

	assert.Equal(t, "Page", set.Alerts[1].Source)
	assert.Equal(t, srv.URL+"/a", set.Alerts[1].Link)
	assert.Equal(t, "2024-03-02", set.Alerts[1].Date)
	assert.Equal(t, geo.Unknown, set.Alerts[1].Country)

	assert.Equal(t, "status", set.Sources[1].FailureKind)
}
