package websearch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const truncatedMarker = "\n\n[content truncated]"

// HTTPScraper fetches a page and returns it as markdown.
type HTTPScraper struct {
	opts options
}

// NewHTTPScraper returns a scraper with the given options.
func NewHTTPScraper(opts ...Option) *HTTPScraper {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &HTTPScraper{opts: o}
}

// Scrape fetches rawURL. HTML is converted to markdown; other text types are
// returned as-is. Output is capped at the configured rune limit.
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("scrape: unsupported url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("scrape: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.opts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("scrape: %s returned status %d", u.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("scrape: read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	var text string
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml" || mediaType == "":
		text, err = htmltomarkdown.ConvertString(string(body))
		if err != nil {
			return "", fmt.Errorf("scrape: convert html: %w", err)
		}
	case strings.HasPrefix(mediaType, "text/") || mediaType == "application/json":
		text = string(body)
	default:
		return "", fmt.Errorf("scrape: unsupported content type %q", mediaType)
	}

	return truncateRunes(strings.TrimSpace(text), s.opts.maxRunes), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + truncatedMarker
}
