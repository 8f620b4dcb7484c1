package tools

import (
	"context"
	"fmt"
)

// Searcher performs a web search and returns the results as text.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string) (string, error)

func (f SearcherFunc) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

type SearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query to get related websites, ALWAYS PROVIDE A SOURCE IN YOUR RESPONSE"`
}

var SearchInputSchema = GenerateSchema[SearchInput]()

// SearchDefinition returns the search tool backed by s.
func SearchDefinition(s Searcher) ToolDefinition {
	return ToolDefinition{
		Name:        Search,
		Description: "Search the web to get information for the user",
		InputSchema: SearchInputSchema,
		Function: func(ctx context.Context, args ...string) (string, error) {
			if len(args) != 1 {
				return "", fmt.Errorf("search: want 1 argument, got %d", len(args))
			}
			return s.Search(ctx, args[0])
		},
	}
}
