package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DefaultSearchEndpoint is DuckDuckGo's JavaScript-free results page.
const DefaultSearchEndpoint = "https://html.duckduckgo.com/html/"

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// DuckDuckGo searches via the HTML results page.
type DuckDuckGo struct {
	opts options
}

// NewDuckDuckGo returns a searcher with the given options.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &DuckDuckGo{opts: o}
}

// Search returns the top results formatted for the model. An empty result
// set is reported in the text, not as an error.
func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	results, err := d.Results(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatResults(query, results), nil
}

// Results runs query and returns the parsed hits.
func (d *DuckDuckGo) Results(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search: empty query")
	}

	u, err := url.Parse(d.opts.endpoint)
	if err != nil {
		return nil, fmt.Errorf("search: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	req.Header.Set("User-Agent", d.opts.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.opts.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	results, err := parseResults(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(results) > d.opts.maxResults {
		results = results[:d.opts.maxResults]
	}
	return results, nil
}

// FormatResults renders results as a numbered list with title, URL and snippet.
func FormatResults(query string, results []Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func parseResults(r io.Reader) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				results = append(results, Result{
					Title: nodeText(n),
					URL:   resolveLink(attr(n, "href")),
				})
				return
			case hasClass(n, "result__snippet"):
				if len(results) > 0 {
					results[len(results)-1].Snippet = nodeText(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// resolveLink unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=...).
func resolveLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
