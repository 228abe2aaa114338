// Package pipeline runs sources through normalization, matching, the date
// window and location resolution, and aggregates the resulting alerts.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"epiwatch/internal/alert"
	"epiwatch/internal/discovery"
	"epiwatch/internal/filter"
	"epiwatch/internal/geo"
	"epiwatch/internal/logger"
)

const defaultGeoConcurrency = 2

type Options struct {
	// MaxConcurrentFetches caps parallel source fetches. 0 means one worker
	// per source.
	MaxConcurrentFetches int
	GeoConcurrency       int
	Timeout              time.Duration
	Dedupe               bool
	// Now stamps PAGE alerts with the run date. Defaults to time.Now.
	Now func() time.Time
}

type Pipeline struct {
	fetcher  discovery.Adapter
	resolver geo.LocationResolver
	opts     Options
	log      logger.Logger
	metrics  *Metrics
}

func New(fetcher discovery.Adapter, resolver geo.LocationResolver, opts Options, log logger.Logger, metrics *Metrics) *Pipeline {
	if resolver == nil {
		resolver = geo.Fixed(geo.Unknown)
	}
	if opts.GeoConcurrency <= 0 {
		opts.GeoConcurrency = defaultGeoConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Pipeline{
		fetcher:  fetcher,
		resolver: resolver,
		opts:     opts,
		log:      log,
		metrics:  metrics,
	}
}

type fetchResult struct {
	candidates []discovery.RawCandidate
	err        error
}

// admitted is a candidate that passed every filter, with its keywords.
type admitted struct {
	src      int
	cand     filter.AlertCandidate
	keywords []string
	date     string
}

// Run executes one stateless pass over req.Sources. Source failures are
// recorded in the report and never fail the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (alert.AlertSet, error) {
	vocab, err := req.Validate()
	if err != nil {
		p.metrics.Runs.WithLabelValues("invalid").Inc()
		return alert.AlertSet{}, err
	}

	runID := uuid.NewString()
	log := p.log.With(logger.String("run_id", runID))
	started := time.Now()

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	runDate := p.opts.Now().UTC().Format(time.DateOnly)
	log.Debug("Run started",
		logger.Int("sources", len(req.Sources)),
		logger.Strings("vocabulary", vocab),
		logger.String("start", filter.Date(req.Start).Format(time.DateOnly)),
		logger.String("end", filter.Date(req.End).Format(time.DateOnly)))
	results := p.fetchAll(ctx, req.Sources)

	reports := make([]alert.SourceReport, len(req.Sources))
	var passed []admitted
	for i, src := range req.Sources {
		res := results[i]
		reports[i] = alert.SourceReport{
			Name:       src.Name,
			Kind:       string(src.Kind),
			Candidates: len(res.candidates),
		}
		if res.err != nil {
			kind := discovery.KindOf(res.err)
			if kind == "" {
				kind = discovery.FailureNetwork
			}
			reports[i].Error = res.err.Error()
			reports[i].FailureKind = string(kind)
			p.metrics.SourceFetches.WithLabelValues(src.Name, string(kind)).Inc()
			log.Warn("Source unavailable",
				logger.String("source", src.Name),
				logger.String("kind", string(kind)),
				logger.Error(res.err))
			continue
		}
		p.metrics.SourceFetches.WithLabelValues(src.Name, "ok").Inc()

		for _, raw := range res.candidates {
			cand := filter.Normalize(raw, src)
			keywords := filter.Match(cand.Text, vocab)
			if len(keywords) == 0 {
				continue
			}
			date := runDate
			if src.Kind != discovery.KindPage {
				if !filter.InRange(cand.PublishedRaw, req.Start, req.End) {
					continue
				}
				date = *cand.PublishedRaw
			}
			reports[i].Admitted++
			passed = append(passed, admitted{src: i, cand: cand, keywords: keywords, date: date})
		}
	}

	countries := p.resolveAll(ctx, req.Sources, passed)

	alerts := make([]alert.Alert, 0, len(passed))
	for j, a := range passed {
		for _, kw := range a.keywords {
			alerts = append(alerts, alert.Alert{
				Source:  a.cand.Source,
				Title:   a.cand.Title,
				Keyword: kw,
				Date:    a.date,
				Country: countries[j],
				Link:    a.cand.Link,
			})
		}
	}
	if p.opts.Dedupe {
		alerts = alert.Dedupe(alerts)
	}

	byName := make(map[string]int, len(reports))
	for i := len(reports) - 1; i >= 0; i-- {
		byName[reports[i].Name] = i
	}
	for _, a := range alerts {
		reports[byName[a.Source]].Alerts++
		p.metrics.Alerts.WithLabelValues(a.Source).Inc()
	}

	set := alert.AlertSet{
		RunID:   runID,
		Start:   filter.Date(req.Start).Format(time.DateOnly),
		End:     filter.Date(req.End).Format(time.DateOnly),
		Alerts:  alerts,
		Summary: alert.Summarize(alerts),
		Sources: reports,
	}

	elapsed := time.Since(started)
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.Runs.WithLabelValues("ok").Inc()
	log.Info("Run complete",
		logger.Int("sources", len(req.Sources)),
		logger.Int("alerts", set.Summary.Total),
		logger.String("top_keyword", set.Summary.TopKeyword),
		logger.String("top_source", set.Summary.TopSource),
		logger.Bool("dedupe", p.opts.Dedupe),
		logger.Duration("elapsed", elapsed))

	return set, nil
}

// fetchAll fetches every source once. Results are stored by source index.
func (p *Pipeline) fetchAll(ctx context.Context, sources []discovery.SourceDescriptor) []fetchResult {
	results := make([]fetchResult, len(sources))
	var g errgroup.Group
	if p.opts.MaxConcurrentFetches > 0 {
		g.SetLimit(p.opts.MaxConcurrentFetches)
	}
	for i, src := range sources {
		g.Go(func() error {
			cands, err := p.fetcher.Fetch(ctx, src)
			results[i] = fetchResult{candidates: cands, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// resolveAll resolves one location per admitted candidate. The cache lives
// for this run only.
func (p *Pipeline) resolveAll(ctx context.Context, sources []discovery.SourceDescriptor, passed []admitted) []string {
	resolver := geo.Cached(p.resolver)
	countries := make([]string, len(passed))

	var g errgroup.Group
	g.SetLimit(p.opts.GeoConcurrency)
	for j, a := range passed {
		if fixed := sources[a.src].Country; fixed != "" {
			countries[j] = fixed
			continue
		}
		g.Go(func() error {
			countries[j] = resolver.Resolve(ctx, a.cand.Text)
			return nil
		})
	}
	_ = g.Wait()
	return countries
}
