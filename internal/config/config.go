// Package config loads EpiWatch settings from defaults, an optional YAML
// file, a .env file and EPIWATCH_* environment variables, in increasing
// order of precedence.
//
// Keys map to environment variables by upper-casing and replacing dots with
// underscores, e.g. notify.email.password is EPIWATCH_NOTIFY_EMAIL_PASSWORD.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"epiwatch/internal/discovery"
)

const envPrefix = "EPIWATCH"

type Config struct {
	HTTP    HTTPConfig                   `mapstructure:"http"`
	Run     RunConfig                    `mapstructure:"run"`
	Sources []discovery.SourceDescriptor `mapstructure:"sources"`
	Geo     GeoConfig                    `mapstructure:"geo"`
	Notify  NotifyConfig                 `mapstructure:"notify"`
	Server  ServerConfig                 `mapstructure:"server"`
	Log     LogConfig                    `mapstructure:"log"`
}

// HTTPConfig applies to source fetches.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type RunConfig struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxConcurrentFetches int           `mapstructure:"max_concurrent_fetches"`
	Dedupe               bool          `mapstructure:"dedupe"`
	Vocabulary           []string      `mapstructure:"vocabulary"`
}

type GeoConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Gazetteer     bool          `mapstructure:"gazetteer"`
	GazetteerPath string        `mapstructure:"gazetteer_path"`
	Endpoint      string        `mapstructure:"endpoint"`
	Language      string        `mapstructure:"language"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Concurrency   int           `mapstructure:"concurrency"`
}

type NotifyConfig struct {
	Email EmailConfig `mapstructure:"email"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type EmailConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	To       []string      `mapstructure:"to"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// KafkaConfig enables the alert publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// Load reads configuration. An empty path searches ./config.yaml and
// ./config/config.yaml; a missing file is not an error in that case.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Notify.Email.Password != "" {
		c.Notify.Email.Password = "********"
	}
	return c
}
