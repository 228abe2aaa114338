package config

import (
	"time"

	"github.com/spf13/viper"

	"epiwatch/internal/discovery"
	"epiwatch/internal/geo"
)

// DefaultVocabulary is the stock disease and mass-gathering term list.
var DefaultVocabulary = []string{
	"cholera", "anthrax", "meningitis", "avian flu", "covid-19", "mers",
	"dengue", "ebola", "plague", "yellow fever", "measles", "influenza",
	"hajj", "umrah", "pilgrimage", "mecca", "madinah", "mass gathering",
	"infectious disease in pilgrims", "public health hajj",
}

// DefaultSources are the stock health feeds plus the Sabq health page.
var DefaultSources = []discovery.SourceDescriptor{
	{Name: "WHO", Kind: discovery.KindFeed, URL: "https://www.who.int/feeds/entity/csr/don/en/rss.xml"},
	{Name: "CDC", Kind: discovery.KindFeed, URL: "https://tools.cdc.gov/api/v2/resources/media/403372.rss"},
	{Name: "BBC", Kind: discovery.KindFeed, URL: "http://feeds.bbci.co.uk/news/health/rss.xml"},
	{Name: "Reuters", Kind: discovery.KindFeed, URL: "http://feeds.reuters.com/reuters/healthNews"},
	{Name: "Google Health", Kind: discovery.KindFeed, URL: "https://news.google.com/rss/search?q=health+disease+outbreak"},
	{Name: "GPHIN", Kind: discovery.KindFeed, URL: "https://www.phac-aspc.gc.ca/rss/gphin.xml"},
	{Name: "Sabq", Kind: discovery.KindPage, URL: "https://sabq.org/health", Country: "Saudi Arabia"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", discovery.DefaultFetchTimeout)
	v.SetDefault("http.user_agent", discovery.DefaultUserAgent)

	v.SetDefault("run.timeout", 2*time.Minute)
	v.SetDefault("run.max_concurrent_fetches", 0)
	v.SetDefault("run.dedupe", false)
	v.SetDefault("run.vocabulary", DefaultVocabulary)

	sources := make([]map[string]any, 0, len(DefaultSources))
	for _, s := range DefaultSources {
		sources = append(sources, map[string]any{
			"name":    s.Name,
			"kind":    string(s.Kind),
			"url":     s.URL,
			"country": s.Country,
		})
	}
	v.SetDefault("sources", sources)

	v.SetDefault("geo.enabled", true)
	v.SetDefault("geo.gazetteer", true)
	v.SetDefault("geo.gazetteer_path", "")
	v.SetDefault("geo.endpoint", geo.DefaultNominatimEndpoint)
	v.SetDefault("geo.language", "en")
	v.SetDefault("geo.rate_per_second", 1.0)
	v.SetDefault("geo.burst", 1)
	v.SetDefault("geo.timeout", 10*time.Second)
	v.SetDefault("geo.concurrency", 2)

	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.host", "smtp.gmail.com")
	v.SetDefault("notify.email.port", 465)
	v.SetDefault("notify.email.username", "")
	v.SetDefault("notify.email.password", "")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.to", []string{})
	v.SetDefault("notify.email.timeout", 30*time.Second)
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.topic", "epiwatch.alerts")
	v.SetDefault("notify.kafka.write_timeout", 10*time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.output_paths", []string{"stderr"})
}
