package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"epiwatch/internal/discovery"
)

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("sources: at least one source is required"))
	}
	names := map[string]struct{}{}
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: name is required", i))
		} else if _, dup := names[s.Name]; dup {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name))
		}
		names[s.Name] = struct{}{}

		kind, err := discovery.ParseKind(string(s.Kind))
		if err != nil {
			errs = append(errs, fmt.Errorf("sources[%d]: %w", i, err))
		}
		s.Kind = kind

		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: url %q must be absolute http(s)", i, s.URL))
		}
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if c.Run.Timeout <= 0 {
		errs = append(errs, errors.New("run.timeout must be positive"))
	}
	if c.Run.MaxConcurrentFetches < 0 {
		errs = append(errs, errors.New("run.max_concurrent_fetches must not be negative"))
	}
	if c.Geo.Enabled {
		if c.Geo.Timeout <= 0 {
			errs = append(errs, errors.New("geo.timeout must be positive"))
		}
		if c.Geo.Concurrency <= 0 {
			errs = append(errs, errors.New("geo.concurrency must be positive"))
		}
	}

	if c.Notify.Email.Enabled {
		e := c.Notify.Email
		if e.Host == "" {
			errs = append(errs, errors.New("notify.email.host is required"))
		}
		if !validPort(e.Port) {
			errs = append(errs, fmt.Errorf("notify.email.port %d out of range", e.Port))
		}
		if e.From == "" || len(e.To) == 0 {
			errs = append(errs, errors.New("notify.email.from and notify.email.to are required"))
		}
		if e.Timeout <= 0 {
			errs = append(errs, errors.New("notify.email.timeout must be positive"))
		}
	}
	if c.Notify.Kafka.Enabled() && c.Notify.Kafka.Topic == "" {
		errs = append(errs, errors.New("notify.kafka.topic is required when brokers are set"))
	}

	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr: %w", err))
	} else if p, err := strconv.Atoi(port); err != nil || !validPort(p) {
		errs = append(errs, fmt.Errorf("server.addr: port %q out of range", port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
