package websearch

import (
	"net/http"
	"time"
)

const (
	defaultUserAgent  = "Mozilla/5.0 (compatible; research-agent/1.0)"
	defaultMaxResults = 5
	defaultMaxRunes   = 8000
	// maxBodyBytes bounds how much of any response is read.
	maxBodyBytes = 2 << 20
)

type options struct {
	client     *http.Client
	userAgent  string
	endpoint   string
	maxResults int
	maxRunes   int
}

func defaults() options {
	return options{
		client:     &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
		endpoint:   DefaultSearchEndpoint,
		maxResults: defaultMaxResults,
		maxRunes:   defaultMaxRunes,
	}
}

// Option configures a DuckDuckGo searcher or an HTTPScraper.
type Option func(*options)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithEndpoint overrides the search endpoint. Ignored by HTTPScraper.
func WithEndpoint(url string) Option {
	return func(o *options) {
		if url != "" {
			o.endpoint = url
		}
	}
}

// WithMaxResults caps the number of search results. Ignored by HTTPScraper.
func WithMaxResults(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxResults = n
		}
	}
}

// WithMaxRunes caps scraped output. Ignored by DuckDuckGo.
func WithMaxRunes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRunes = n
		}
	}
}
