// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crawler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "SiteSearchBot/1.0"
	DefaultReferrer  = "https://www.google.com"
	DefaultTimeout   = 5 * time.Second
	DefaultMaxBytes  = 10 << 20
)

// FetcherConfig configures a Fetcher. Zero fields take the defaults.
type FetcherConfig struct {
	UserAgent string
	Referrer  string
	Timeout   time.Duration
	MaxBytes  int64
}

func (c *FetcherConfig) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Referrer == "" {
		c.Referrer = DefaultReferrer
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
}

// Response is a fetched HTML document.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	client *http.Client
	config FetcherConfig
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: cfg,
	}
}

// Fetch downloads rawURL. Responses with status 400..599 return a *StatusError,
// non-HTML responses return ErrNotHTML.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Referer", f.config.Referrer)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 600 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotHTML, rawURL, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, rawURL, f.config.MaxBytes)
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// isHTML treats a missing content type as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
