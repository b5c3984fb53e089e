package fetch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CrawlResult is a fetched page rendered as markdown.
type CrawlResult struct {
	URL        string `json:"url"`
	SourceURL  string `json:"source_url"`
	Title      string `json:"title,omitempty"`
	Markdown   string `json:"markdown"`
	StatusCode int    `json:"status_code"`
	FromCache  bool   `json:"-"`
}

// Crawler fetches a URL and returns its content as markdown.
type Crawler interface {
	Crawl(ctx context.Context, url string) (*CrawlResult, error)
}

// CrawlerConfig configures a PageCrawler.
type CrawlerConfig struct {
	Options        *Options
	RespectRobots  bool
	UseBrowser     bool
	BrowserTimeout time.Duration
}

// PageCrawler fetches pages over HTTP, falling back to a headless browser for
// pages whose static HTML carries too little text.
type PageCrawler struct {
	opts           *Options
	robots         *RobotsChecker
	useBrowser     bool
	browserTimeout time.Duration
	render         RenderFunc
	logger         *zap.Logger
}

// NewPageCrawler creates a crawler.
func NewPageCrawler(cfg CrawlerConfig, logger *zap.Logger) *PageCrawler {
	opts := cfg.Options
	if opts == nil {
		opts = DefaultOptions()
	}
	if cfg.BrowserTimeout <= 0 {
		cfg.BrowserTimeout = DefaultTimeout
	}
	c := &PageCrawler{
		opts:           opts,
		useBrowser:     cfg.UseBrowser,
		browserTimeout: cfg.BrowserTimeout,
		render:         WithBrowser,
		logger:         logger,
	}
	if cfg.RespectRobots {
		c.robots = NewRobotsChecker(opts.httpClient(), opts.UserAgent)
	}
	return c
}

// Crawl implements Crawler.
func (c *PageCrawler) Crawl(ctx context.Context, urlStr string) (*CrawlResult, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return nil, &Error{URL: urlStr, Message: "no URL given"}
	}
	if c.robots != nil && !c.robots.Allowed(ctx, urlStr) {
		return nil, &Error{URL: urlStr, Message: "disallowed by robots.txt"}
	}

	res, err := URL(ctx, urlStr, c.opts)
	if err != nil {
		return nil, err
	}

	article, err := ExtractArticle(res.HTML, res.FinalURL)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract content", Cause: err}
	}

	if c.useBrowser && ShouldUseBrowser(article.Markdown) {
		c.logger.Debug("Static content too short, rendering in browser",
			zap.String("url", urlStr), zap.Int("chars", len(article.Markdown)))
		if rendered := c.renderArticle(ctx, res.FinalURL); rendered != nil && len(rendered.Markdown) > len(article.Markdown) {
			article = rendered
		}
	}

	if strings.TrimSpace(article.Markdown) == "" {
		return nil, &Error{URL: urlStr, Message: "no content extracted"}
	}

	return &CrawlResult{
		URL:        urlStr,
		SourceURL:  res.FinalURL,
		Title:      article.Title,
		Markdown:   article.Markdown,
		StatusCode: res.StatusCode,
	}, nil
}

func (c *PageCrawler) renderArticle(ctx context.Context, urlStr string) *Article {
	html, err := c.render(ctx, urlStr, c.browserTimeout)
	if err != nil {
		c.logger.Warn("Browser rendering failed", zap.String("url", urlStr), zap.Error(err))
		return nil
	}
	article, err := ExtractArticle(html, urlStr)
	if err != nil {
		c.logger.Warn("Failed to extract rendered content", zap.String("url", urlStr), zap.Error(err))
		return nil
	}
	return article
}
