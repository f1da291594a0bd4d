package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`
sites:
  - url: https://example.com/
    name: Пример
  - url: http://blog.example.com
    name: Blog
user_agent: TestBot/2.0
storage:
  driver: sqlite
  path: /tmp/index
crawl:
  workers: 4
  min_delay: 100ms
  max_delay: 1s
  rate_limit: 2.5
search:
  frequency_threshold: 0.5
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "https://example.com", cfg.Sites[0].URL)
	assert.Equal(t, "Пример", cfg.Sites[0].Name)
	assert.Equal(t, "TestBot/2.0", cfg.UserAgent)
	assert.Equal(t, "https://www.google.com", cfg.Referrer)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 4, cfg.Crawl.Workers)
	assert.Equal(t, 100*time.Millisecond, cfg.Crawl.MinDelay)
	assert.Equal(t, time.Second, cfg.Crawl.MaxDelay)
	assert.Equal(t, 5*time.Second, cfg.Crawl.FetchTimeout)
	assert.Equal(t, 2.5, cfg.Crawl.RateLimit)
	assert.Equal(t, 0.5, cfg.Search.FrequencyThreshold)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative site url", func(c *Config) { c.Sites = []SiteConfig{{URL: "example.com"}} }},
		{"duplicate site", func(c *Config) {
			c.Sites = []SiteConfig{{URL: "https://a.example"}, {URL: "https://a.example"}}
		}},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"empty path", func(c *Config) { c.Storage.Path = "" }},
		{"no workers", func(c *Config) { c.Crawl.Workers = 0 }},
		{"inverted delay", func(c *Config) { c.Crawl.MinDelay = 2 * time.Second; c.Crawl.MaxDelay = time.Second }},
		{"zero timeout", func(c *Config) { c.Crawl.FetchTimeout = 0 }},
		{"zero body", func(c *Config) { c.Crawl.MaxBodyBytes = 0 }},
		{"negative rate", func(c *Config) { c.Crawl.RateLimit = -1 }},
		{"threshold above one", func(c *Config) { c.Search.FrequencyThreshold = 1.2 }},
		{"zero limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitesearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sites:\n  - url: https://example.com\n    name: Example\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Example", cfg.Sites[0].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("sites: [\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
