// Package websearch provides the default search and scrape backends for the
// agent's tools: DuckDuckGo's HTML endpoint and a plain HTTP fetcher that
// converts pages to markdown.
package websearch
