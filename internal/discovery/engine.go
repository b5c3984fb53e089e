// Package discovery finds candidate food truck URLs through web search and
// directory crawling, and queues the new ones for scraping.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/fetch"
	"github.com/jonathan/foodtruck-agent/internal/search"
	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// Config holds the discovery sources and limits.
type Config struct {
	SearchTerms        []string
	DirectoryURLs      []string
	Cities             []string
	DefaultRegion      string
	MaxResultsPerQuery int
	SearchDelay        time.Duration
	CrawlMaxDepth      int
	CrawlMaxURLs       int
	JobMaxRetries      int
	JobPriority        int
}

// DefaultConfig returns the default discovery sources for the Charleston area.
func DefaultConfig() Config {
	return Config{
		SearchTerms: []string{
			"food truck Charleston SC",
			"food trucks near me Charleston",
			"mobile food vendor Charleston",
			"street food truck menu Charleston",
		},
		DirectoryURLs:      []string{"https://roaminghunger.com/food-trucks/sc/charleston/"},
		Cities:             []string{"Charleston", "Mount Pleasant", "North Charleston", "Summerville"},
		DefaultRegion:      "SC",
		MaxResultsPerQuery: 10,
		SearchDelay:        time.Second,
		CrawlMaxDepth:      2,
		CrawlMaxURLs:       50,
		JobMaxRetries:      types.DefaultMaxRetries,
	}
}

// Result summarizes one discovery run.
type Result struct {
	URLsDiscovered int      `json:"urls_discovered"`
	URLsStored     int      `json:"urls_stored"`
	URLsDuplicates int      `json:"urls_duplicates"`
	Errors         []string `json:"errors"`
	StoredURLs     []string `json:"stored_urls"`
}

// Engine runs discovery strategies against the search service and the store.
type Engine struct {
	searcher  search.Searcher
	directory search.DirectoryCrawler
	trucks    store.TruckStore
	urls      store.DiscoveryStore
	jobs      store.JobStore
	cfg       Config
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *zap.Logger
}

// NewEngine creates an Engine. searcher or directory may be nil, which disables
// the strategies that need them.
func NewEngine(searcher search.Searcher, directory search.DirectoryCrawler, s store.Store, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		searcher:  searcher,
		directory: directory,
		trucks:    s,
		urls:      s,
		jobs:      s,
		cfg:       cfg,
		sleep:     sleepContext,
		logger:    logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// candidate is a URL accepted during a run.
type candidate struct {
	url    string
	source string
	region string
}

// run is the state of one discovery run. It is owned by a single Run call.
type run struct {
	filter     *URLFilter
	seen       map[string]bool
	accepted   []candidate
	duplicates int
	errors     []string
	searches   int
}

func (r *run) offer(raw, source, region string) {
	normalized := fetch.NormalizeURL(raw)
	if normalized == "" {
		return
	}
	verdict := r.filter.Check(normalized)
	if verdict == Rejected {
		return
	}
	if verdict == Known || r.seen[normalized] {
		r.duplicates++
		return
	}
	r.seen[normalized] = true
	r.accepted = append(r.accepted, candidate{url: normalized, source: source, region: region})
}

func (r *run) fail(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

// Run executes term search, directory crawl and location search, then stores the
// new URLs one at a time. Failures are collected in Result.Errors and never abort the run.
func (e *Engine) Run(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{Errors: []string{}, StoredURLs: []string{}}

	known, err := e.knownURLs(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		e.logger.Error("Discovery could not load existing URLs", zap.Error(err))
		return result
	}
	r := &run{filter: NewURLFilter(known), seen: map[string]bool{}, errors: []string{}}

	e.searchTerms(ctx, r)
	e.crawlDirectories(ctx, r)
	e.searchLocations(ctx, r)

	for _, c := range r.accepted {
		u := &types.DiscoveredURL{
			URL:                c.url,
			SourceDirectoryURL: c.source,
			Region:             c.region,
			Status:             types.DiscoveredNew,
		}
		err := e.urls.InsertDiscoveredURL(ctx, u)
		if errors.Is(err, store.ErrDuplicateURL) {
			// queued by a concurrent run since knownURLs was read
			r.duplicates++
			continue
		}
		result.URLsDiscovered++
		if err != nil {
			r.fail("failed to store %s: %v", c.url, err)
			continue
		}
		result.URLsStored++
		result.StoredURLs = append(result.StoredURLs, c.url)
	}

	result.URLsDuplicates = r.duplicates
	result.Errors = r.errors
	e.logger.Info("Discovery run finished",
		zap.Int("discovered", result.URLsDiscovered),
		zap.Int("stored", result.URLsStored),
		zap.Int("duplicates", result.URLsDuplicates),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", time.Since(start)))
	return result
}

// knownURLs returns truck source URLs plus discovered URLs that are not irrelevant.
func (e *Engine) knownURLs(ctx context.Context) ([]string, error) {
	sources, err := e.trucks.ListTruckSourceURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list truck source URLs: %w", err)
	}
	queued, err := e.urls.ListDiscoveredURLs(ctx, types.DiscoveredNew, types.DiscoveredProcessing, types.DiscoveredProcessed)
	if err != nil {
		return nil, fmt.Errorf("failed to list discovered URLs: %w", err)
	}
	known := append([]string{}, sources...)
	for _, u := range queued {
		known = append(known, u.URL)
	}
	return known, nil
}

// search issues one query, waiting SearchDelay before every query but the first.
func (e *Engine) search(ctx context.Context, r *run, query string) ([]search.Result, bool) {
	if r.searches > 0 {
		if err := e.sleep(ctx, e.cfg.SearchDelay); err != nil {
			r.fail("search %q: %v", query, err)
			return nil, false
		}
	}
	r.searches++

	results, err := e.searcher.Search(ctx, query, e.cfg.MaxResultsPerQuery)
	if err != nil {
		r.fail("search %q failed: %v", query, err)
		e.logger.Warn("Search failed", zap.String("query", query), zap.Error(err))
		return nil, true
	}
	return results, true
}

func (e *Engine) searchTerms(ctx context.Context, r *run) {
	if e.searcher == nil {
		return
	}
	for _, term := range e.cfg.SearchTerms {
		results, ok := e.search(ctx, r, term)
		if !ok {
			return
		}
		for _, res := range results {
			r.offer(res.URL, "", "")
			for _, u := range ExtractURLs(res.Content + "\n" + res.RawContent) {
				r.offer(u, "", "")
			}
		}
	}
}

func (e *Engine) crawlDirectories(ctx context.Context, r *run) {
	if e.directory == nil {
		return
	}
	for _, dir := range e.cfg.DirectoryURLs {
		links, err := e.directory.CrawlDirectory(ctx, dir, e.cfg.CrawlMaxDepth, e.cfg.CrawlMaxURLs)
		if err != nil {
			r.fail("crawl %s failed: %v", dir, err)
			e.logger.Warn("Directory crawl failed", zap.String("url", dir), zap.Error(err))
			continue
		}
		for _, link := range links {
			r.offer(link.URL, dir, "")
		}
	}
}

func (e *Engine) searchLocations(ctx context.Context, r *run) {
	if e.searcher == nil {
		return
	}
	for _, city := range e.cfg.Cities {
		location := WithRegion(city, e.cfg.DefaultRegion)
		results, ok := e.search(ctx, r, "food trucks in "+location)
		if !ok {
			return
		}
		for _, res := range results {
			r.offer(res.URL, "", location)
			for _, u := range ExtractURLs(res.Content + "\n" + res.RawContent) {
				r.offer(u, "", location)
			}
		}
	}
}

// WithRegion appends region to a location that does not already name one.
func WithRegion(location, region string) string {
	location = strings.TrimSpace(location)
	if region == "" || strings.Contains(location, ",") {
		return location
	}
	return location + ", " + region
}

// QueueJobs creates a discovery-followup job for up to limit new discovered URLs
// and marks each URL processing. limit <= 0 queues all of them.
func (e *Engine) QueueJobs(ctx context.Context, limit int) (int, error) {
	fresh, err := e.urls.ListDiscoveredURLs(ctx, types.DiscoveredNew)
	if err != nil {
		return 0, fmt.Errorf("failed to list new discovered URLs: %w", err)
	}
	if limit > 0 && len(fresh) > limit {
		fresh = fresh[:limit]
	}

	queued := 0
	for _, u := range fresh {
		job, err := e.jobs.CreateJob(ctx, &types.Job{
			TargetURL:     u.URL,
			JobType:       types.JobTypeDiscoveryFollowup,
			Status:        types.JobStatusPending,
			Priority:      e.cfg.JobPriority,
			MaxRetries:    e.cfg.JobMaxRetries,
			Errors:        []string{},
			DataCollected: map[string]any{types.DataKeyDiscoveredURLID: u.ID.String()},
		})
		if err != nil {
			return queued, fmt.Errorf("failed to create job for %s: %w", u.URL, err)
		}
		if err := e.urls.UpdateDiscoveredURLStatus(ctx, u.ID, types.DiscoveredProcessing, "queued as job "+job.ID.String()); err != nil {
			return queued, fmt.Errorf("failed to mark %s processing: %w", u.URL, err)
		}
		queued++
	}

	if queued > 0 {
		e.logger.Info("Queued discovered URLs", zap.Int("jobs", queued))
	}
	return queued, nil
}
