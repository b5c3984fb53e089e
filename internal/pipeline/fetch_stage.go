package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/jonathan/foodtruck-agent/internal/fetch"
)

// ErrNoInput is returned when neither a URL nor raw text is supplied.
var ErrNoInput = errors.New("either a URL or raw text is required")

// FetchInput is the Fetch stage input. RawText, when set, is used as-is.
type FetchInput struct {
	URL     string
	RawText string
}

// FetchOutput is the content handed to the Extract stage.
type FetchOutput struct {
	Content   string `json:"content"`
	SourceURL string `json:"source_url,omitempty"`
	Title     string `json:"title,omitempty"`
}

// FetchStage turns a URL into markdown through a crawler.
type FetchStage struct {
	crawler fetch.Crawler
}

// NewFetchStage creates a FetchStage.
func NewFetchStage(crawler fetch.Crawler) *FetchStage {
	return &FetchStage{crawler: crawler}
}

// Run executes the stage. Data is a *FetchOutput on success.
func (s *FetchStage) Run(ctx context.Context, in FetchInput) StageResult {
	return timed(StageFetch, func() StageResult {
		if strings.TrimSpace(in.RawText) != "" {
			return StageResult{
				Status: StatusSkippedRawText,
				Data:   &FetchOutput{Content: in.RawText, SourceURL: in.URL},
			}
		}
		if strings.TrimSpace(in.URL) == "" {
			return errorResult(StageFetch, ErrNoInput)
		}

		res, err := s.crawler.Crawl(ctx, in.URL)
		if err != nil {
			return errorResult(StageFetch, err)
		}
		if res == nil || strings.TrimSpace(res.Markdown) == "" {
			return errorResult(StageFetch, errors.New("crawl returned no content"))
		}

		source := res.SourceURL
		if source == "" {
			source = in.URL
		}
		return StageResult{
			Status: StatusSuccess,
			Data:   &FetchOutput{Content: res.Markdown, SourceURL: source, Title: res.Title},
			Details: map[string]any{
				"status_code":    res.StatusCode,
				"from_cache":     res.FromCache,
				"content_length": len(res.Markdown),
			},
		}
	})
}
