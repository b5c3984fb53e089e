package search

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// MaxResultsPerQuery is the page size limit of the Custom Search API.
const MaxResultsPerQuery = 10

// GoogleSearcher runs queries against the Programmable Search Engine API.
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a searcher for the given engine ID.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search API key and engine ID are required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Search implements Searcher. limit is clamped to [1, MaxResultsPerQuery].
func (g *GoogleSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxResultsPerQuery {
		limit = MaxResultsPerQuery
	}

	resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Query: query, Message: "search failed", Cause: err}
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Link == "" {
			continue
		}
		results = append(results, Result{
			URL:        item.Link,
			Title:      item.Title,
			Content:    item.Snippet,
			RawContent: item.HtmlSnippet,
		})
	}
	return results, nil
}
