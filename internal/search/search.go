// Package search implements the search service used by discovery: ranked web search
// and bounded crawling of vendor directory pages.
package search

import (
	"context"
	"fmt"
)

// Result is one search hit or crawled link.
type Result struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Content    string `json:"content,omitempty"`
	RawContent string `json:"raw_content,omitempty"`
}

// Searcher runs ranked text queries.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// DirectoryCrawler lists the outbound links of a directory site.
type DirectoryCrawler interface {
	CrawlDirectory(ctx context.Context, url string, maxDepth, maxURLs int) ([]Result, error)
}

// Error represents a failed search or crawl.
type Error struct {
	Query   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search %q: %s: %v", e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("search %q: %s", e.Query, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
