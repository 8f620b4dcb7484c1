package tools

import (
	"context"
	"fmt"
)

// Scraper fetches a web page and returns its readable text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// ScraperFunc adapts a function to Scraper.
type ScraperFunc func(ctx context.Context, url string) (string, error)

func (f ScraperFunc) Scrape(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

type ScrapeWebsiteInput struct {
	URL string `json:"url" jsonschema_description:"The URL of the website to scrape"`
}

var ScrapeWebsiteInputSchema = GenerateSchema[ScrapeWebsiteInput]()

// ScrapeWebsiteDefinition returns the scrapeWebsite tool backed by s.
func ScrapeWebsiteDefinition(s Scraper) ToolDefinition {
	return ToolDefinition{
		Name:        ScrapeWebsite,
		Description: "Scrape a website only if the user gives you a URL",
		InputSchema: ScrapeWebsiteInputSchema,
		Function: func(ctx context.Context, args ...string) (string, error) {
			if len(args) != 1 {
				return "", fmt.Errorf("scrapeWebsite: want 1 argument, got %d", len(args))
			}
			return s.Scrape(ctx, args[0])
		},
	}
}
