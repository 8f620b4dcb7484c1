package websearch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/research-agent/internal/websearch"
)

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>t</title></head><body>
			<h1>Go Concurrency</h1>
			<p>Goroutines are <strong>cheap</strong>.</p>
			<a href="https://go.dev">Go</a>
		</body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("just text"))
	})
	mux.HandleFunc("/long", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("é", 500)))
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50})
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPScraper_HTMLToMarkdown(t *testing.T) {
	srv := newPageServer(t)
	s := websearch.NewHTTPScraper(websearch.WithHTTPClient(srv.Client()))

	out, err := s.Scrape(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Contains(t, out, "# Go Concurrency")
	assert.Contains(t, out, "**cheap**")
	assert.Contains(t, out, "[Go](https://go.dev)")
	assert.NotContains(t, out, "<p>")
}

func TestHTTPScraper_PlainText(t *testing.T) {
	srv := newPageServer(t)
	s := websearch.NewHTTPScraper(websearch.WithHTTPClient(srv.Client()))

	out, err := s.Scrape(context.Background(), srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "just text", out)
}

func TestHTTPScraper_TruncatesByRunes(t *testing.T) {
	srv := newPageServer(t)
	s := websearch.NewHTTPScraper(websearch.WithHTTPClient(srv.Client()), websearch.WithMaxRunes(100))

	out, err := s.Scrape(context.Background(), srv.URL+"/long")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "[content truncated]"))
	assert.Equal(t, 100, strings.Count(out, "é"))
}

func TestHTTPScraper_Errors(t *testing.T) {
	srv := newPageServer(t)
	s := websearch.NewHTTPScraper(websearch.WithHTTPClient(srv.Client()))

	cases := map[string]string{
		"not found":        srv.URL + "/missing",
		"binary":           srv.URL + "/image",
		"unsupported url":  "ftp://example.com/file",
		"relative url":     "/article",
		"not a url at all": "::::",
	}
	for name, u := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Scrape(context.Background(), u)
			assert.Error(t, err)
		})
	}
}
