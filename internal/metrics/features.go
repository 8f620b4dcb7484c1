package metrics

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Features are size features of a query or text handed to the agent.
// They never carry the text itself.
type Features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
	URLs  int `json:"urls"`
}

// CountFeatures computes the features of s. URLs counts whitespace separated
// http(s) links with a host, the kind a scrapeWebsite call would target.
func CountFeatures(s string) Features {
	words := strings.Fields(s)
	return Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(words),
		Lines: countLines(s),
		URLs:  countURLs(words),
	}
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

func countURLs(words []string) int {
	n := 0
	for _, w := range words {
		w = strings.Trim(w, `"'()<>[],.;`)
		if !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") {
			continue
		}
		if u, err := url.Parse(w); err == nil && u.Host != "" {
			n++
		}
	}
	return n
}
