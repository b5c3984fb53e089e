package search

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyCrawler crawls directory sites with colly, following links on the
// directory's own host and collecting links that point elsewhere.
type CollyCrawler struct {
	userAgent string
	delay     time.Duration
	logger    *zap.Logger
}

// NewCollyCrawler creates a directory crawler with a fixed per-request delay.
func NewCollyCrawler(userAgent string, delay time.Duration, logger *zap.Logger) *CollyCrawler {
	return &CollyCrawler{userAgent: userAgent, delay: delay, logger: logger}
}

// CrawlDirectory implements DirectoryCrawler.
func (c *CollyCrawler) CrawlDirectory(ctx context.Context, startURL string, maxDepth, maxURLs int) ([]Result, error) {
	start, err := url.Parse(startURL)
	if err != nil || start.Host == "" {
		return nil, &Error{Query: startURL, Message: "invalid directory URL", Cause: err}
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	directoryHost := strings.TrimPrefix(strings.ToLower(start.Hostname()), "www.")

	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.MaxDepth(maxDepth),
	}
	if c.userAgent != "" {
		opts = append(opts, colly.UserAgent(c.userAgent))
	}
	if maxURLs > 0 {
		// every visited page yields links, so page visits never need to exceed the link cap
		opts = append(opts, colly.MaxRequests(uint32(maxURLs)))
	}
	collector := colly.NewCollector(opts...)
	if c.delay > 0 {
		if err := collector.Limit(&colly.LimitRule{DomainGlob: "*", Delay: c.delay}); err != nil {
			return nil, &Error{Query: startURL, Message: "failed to set rate limit", Cause: err}
		}
	}

	var (
		mu      sync.Mutex
		results []Result
		seen    = make(map[string]bool)
	)
	full := func() bool { return maxURLs > 0 && len(results) >= maxURLs }

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		parsed, err := url.Parse(link)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return
		}
		parsed.Fragment = ""
		link = parsed.String()
		host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

		if host == directoryHost {
			_ = e.Request.Visit(link)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if full() || seen[link] {
			return
		}
		seen[link] = true
		results = append(results, Result{URL: link, Title: strings.TrimSpace(e.Text)})
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.logger.Debug("Directory page failed",
			zap.String("url", r.Request.URL.String()), zap.Int("status", r.StatusCode), zap.Error(err))
	})

	if err := collector.Visit(startURL); err != nil {
		return nil, &Error{Query: startURL, Message: "crawl failed", Cause: err}
	}
	collector.Wait()

	return results, nil
}
