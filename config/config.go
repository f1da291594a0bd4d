// Package config loads the YAML configuration of a sitesearch instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/sitesearch/core"
)

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full sitesearch configuration.
type Config struct {
	Sites     []SiteConfig  `yaml:"sites"`
	UserAgent string        `yaml:"user_agent"`
	Referrer  string        `yaml:"referrer"`
	Storage   StorageConfig `yaml:"storage"`
	Server    ServerConfig  `yaml:"server"`
	Crawl     CrawlConfig   `yaml:"crawl"`
	Search    SearchConfig  `yaml:"search"`
}

// SiteConfig is a site to crawl.
type SiteConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // badger | sqlite
	Path   string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// CrawlConfig tunes crawl jobs.
type CrawlConfig struct {
	Workers      int           `yaml:"workers"`
	MinDelay     time.Duration `yaml:"min_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	RateLimit    float64       `yaml:"rate_limit"` // requests per second per site, 0 = unlimited
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	FrequencyThreshold float64 `yaml:"frequency_threshold"`
	DefaultLimit       int     `yaml:"default_limit"`
}

// Default returns the configuration used for fields a file leaves out.
func Default() *Config {
	return &Config{
		UserAgent: "SiteSearchBot/1.0",
		Referrer:  "https://www.google.com",
		Storage: StorageConfig{
			Driver: DriverBadger,
			Path:   "./data",
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
		Crawl: CrawlConfig{
			Workers:      runtime.NumCPU(),
			MinDelay:     500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			FetchTimeout: 5 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Search: SearchConfig{
			FrequencyThreshold: 0.8,
			DefaultLimit:       20,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	for i := range cfg.Sites {
		cfg.Sites[i].URL = core.NormalizeBaseURL(cfg.Sites[i].URL)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Sites))
	for i, s := range c.Sites {
		if err := core.ValidateBaseURL(s.URL); err != nil {
			return fmt.Errorf("%w: sites[%d]: %w", ErrInvalidConfig, i, err)
		}
		if _, dup := seen[s.URL]; dup {
			return fmt.Errorf("%w: sites[%d]: duplicate url %s", ErrInvalidConfig, i, s.URL)
		}
		seen[s.URL] = struct{}{}
	}

	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
	default:
		return fmt.Errorf("%w: unsupported storage driver %q (use badger or sqlite)", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required", ErrInvalidConfig)
	}

	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("%w: crawl.workers must be > 0", ErrInvalidConfig)
	}
	if c.Crawl.MinDelay < 0 || c.Crawl.MaxDelay < c.Crawl.MinDelay {
		return fmt.Errorf("%w: crawl delay must satisfy 0 <= min_delay <= max_delay", ErrInvalidConfig)
	}
	if c.Crawl.FetchTimeout <= 0 {
		return fmt.Errorf("%w: crawl.fetch_timeout must be > 0", ErrInvalidConfig)
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: crawl.max_body_bytes must be > 0", ErrInvalidConfig)
	}
	if c.Crawl.RateLimit < 0 {
		return fmt.Errorf("%w: crawl.rate_limit must be >= 0", ErrInvalidConfig)
	}

	if c.Search.FrequencyThreshold <= 0 || c.Search.FrequencyThreshold > 1 {
		return fmt.Errorf("%w: search.frequency_threshold must be in (0, 1]", ErrInvalidConfig)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("%w: search.default_limit must be > 0", ErrInvalidConfig)
	}
	return nil
}
