package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"epiwatch/internal/alert"
	"epiwatch/internal/config"
	"epiwatch/internal/discovery"
	"epiwatch/internal/geo"
	"epiwatch/internal/logger"
	"epiwatch/internal/notify"
	"epiwatch/internal/pipeline"
)

// ErrNoNotifier is returned when delivery is requested but nothing is
// configured to deliver.
var ErrNoNotifier = errors.New("no notifier configured")

type Service struct {
	Config   *config.Config
	Log      logger.Logger
	Fetcher  discovery.Adapter
	Pipeline *pipeline.Pipeline
	Notifier notify.Notifier

	closers []io.Closer
}

// NewService wires the pipeline and notifiers from cfg. Metrics register
// with reg.
func NewService(cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*Service, error) {
	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	registry := discovery.NewRegistry(client, cfg.HTTP.UserAgent, cfg.HTTP.Timeout)

	resolver, err := buildResolver(cfg, log)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(registry, resolver, pipeline.Options{
		MaxConcurrentFetches: cfg.Run.MaxConcurrentFetches,
		GeoConcurrency:       cfg.Geo.Concurrency,
		Timeout:              cfg.Run.Timeout,
		Dedupe:               cfg.Run.Dedupe,
	}, log, pipeline.NewMetrics(reg))

	s := &Service{
		Config:   cfg,
		Log:      log,
		Fetcher:  registry,
		Pipeline: p,
	}

	var notifiers notify.Multi
	if e := cfg.Notify.Email; e.Enabled {
		notifiers = append(notifiers, notify.NewMailer(notify.MailConfig{
			Host:     e.Host,
			Port:     e.Port,
			Username: e.Username,
			Password: e.Password,
			From:     e.From,
			To:       e.To,
			Timeout:  e.Timeout,
		}, nil, log))
	}
	if k := cfg.Notify.Kafka; k.Enabled() {
		pub := notify.NewKafkaPublisher(notify.NewKafkaWriter(k.Brokers, k.Topic, k.WriteTimeout), log)
		notifiers = append(notifiers, pub)
		s.closers = append(s.closers, pub)
	}
	if len(notifiers) > 0 {
		s.Notifier = notifiers
	}
	return s, nil
}

func buildResolver(cfg *config.Config, log logger.Logger) (geo.LocationResolver, error) {
	if !cfg.Geo.Enabled {
		return geo.Fixed(geo.Unknown), nil
	}

	var gazetteer *geo.CountryMatcher
	if cfg.Geo.Gazetteer {
		if cfg.Geo.GazetteerPath != "" {
			m, err := geo.LoadCountryMatcher(cfg.Geo.GazetteerPath)
			if err != nil {
				return nil, fmt.Errorf("load gazetteer: %w", err)
			}
			gazetteer = m
		} else {
			gazetteer = geo.DefaultCountryMatcher()
		}
	}

	geocoder := geo.NewNominatimGeocoder(cfg.Geo.Endpoint, cfg.HTTP.UserAgent, cfg.Geo.Language)
	limiter := geo.NewLimiter(cfg.Geo.RatePerSecond, cfg.Geo.Burst)
	return geo.NewHybridResolver(gazetteer, geocoder, limiter, cfg.Geo.Timeout, log), nil
}

// RunRequest is a run window plus an optional vocabulary override.
type RunRequest struct {
	Start    time.Time
	End      time.Time
	Keywords []string
}

func (s *Service) Run(ctx context.Context, req RunRequest) (alert.AlertSet, error) {
	vocab := req.Keywords
	if len(vocab) == 0 {
		vocab = s.Config.Run.Vocabulary
	}
	return s.Pipeline.Run(ctx, pipeline.Request{
		Sources:    s.Config.Sources,
		Vocabulary: vocab,
		Start:      req.Start,
		End:        req.End,
	})
}

// Notify delivers set through every configured notifier.
func (s *Service) Notify(ctx context.Context, set alert.AlertSet) error {
	if s.Notifier == nil {
		return ErrNoNotifier
	}
	return s.Notifier.Notify(ctx, set)
}

type ProbeResult struct {
	Source     discovery.SourceDescriptor
	Candidates int
	Elapsed    time.Duration
	Err        error
}

// Probe fetches every configured source once and reports what came back.
func (s *Service) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, len(s.Config.Sources))
	var g errgroup.Group
	for i, src := range s.Config.Sources {
		g.Go(func() error {
			started := time.Now()
			cands, err := s.Fetcher.Fetch(ctx, src)
			results[i] = ProbeResult{Source: src, Candidates: len(cands), Elapsed: time.Since(started), Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseWindow parses YYYY-MM-DD bounds. An empty bound is today.
func ParseWindow(from, to string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start, err := parseDay(from, today)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
	}
	end, err := parseDay(to, today)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
	}
	return start, end, nil
}

func parseDay(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
