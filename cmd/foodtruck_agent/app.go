package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/config"
	"github.com/jonathan/foodtruck-agent/internal/db"
	"github.com/jonathan/foodtruck-agent/internal/dedup"
	"github.com/jonathan/foodtruck-agent/internal/discovery"
	"github.com/jonathan/foodtruck-agent/internal/fetch"
	"github.com/jonathan/foodtruck-agent/internal/jobs"
	"github.com/jonathan/foodtruck-agent/internal/llm"
	"github.com/jonathan/foodtruck-agent/internal/pipeline"
	"github.com/jonathan/foodtruck-agent/internal/search"
	"github.com/jonathan/foodtruck-agent/internal/store"
)

// app wires the configured components. Builders are lazy so commands only
// require the credentials they actually use.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   store.Store
	closers []func()
}

func (c *cli) newApp(ctx context.Context) (*app, error) {
	a := &app{cfg: c.cfg, logger: c.logger}

	if c.memory || c.cfg.DatabaseURL == "" {
		if !c.memory {
			c.logger.Warn("No database configured; records are kept in memory for this process only")
		}
		a.store = store.NewMemory()
		return a, nil
	}

	database, err := db.Connect(ctx, c.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	a.store = database
	a.closers = append(a.closers, database.Close)
	return a, nil
}

// Close releases every connection the app opened, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// crawler builds the page crawler, wrapped in the Redis cache when redis_url is set.
func (a *app) crawler() (fetch.Crawler, error) {
	var crawler fetch.Crawler = fetch.NewPageCrawler(a.cfg.CrawlerConfig(), a.logger)
	if a.cfg.RedisURL == "" {
		return crawler, nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url: %w", err)
	}
	rdb := redis.NewClient(opts)
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return fetch.NewCachedCrawler(crawler, rdb, a.cfg.Fetch.CacheTTL, a.logger), nil
}

func (a *app) extractor(ctx context.Context) (pipeline.Extractor, error) {
	if a.cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable or llm.api_key is required")
	}
	llmCfg := llm.DefaultConfig()
	if a.cfg.LLM.MaxContentChars > 0 {
		llmCfg.MaxContentChars = a.cfg.LLM.MaxContentChars
	}
	client, err := llm.NewGeminiClient(ctx, llmCfg, a.cfg.LLM.APIKey)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return llm.NewExtractor(client, llm.ParseTier(a.cfg.LLM.ModelTier), llmCfg.MaxContentChars), nil
}

func (a *app) detector() *dedup.Detector {
	return dedup.NewDetector(a.store, dedup.DefaultPageSize, a.logger)
}

func (a *app) runner(ctx context.Context) (*pipeline.Runner, error) {
	crawler, err := a.crawler()
	if err != nil {
		return nil, err
	}
	extractor, err := a.extractor(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(crawler, extractor, a.detector(), a.store, a.logger), nil
}

func (a *app) orchestrator(ctx context.Context) (*jobs.Orchestrator, error) {
	runner, err := a.runner(ctx)
	if err != nil {
		return nil, err
	}
	return a.orchestratorWith(runner), nil
}

func (a *app) orchestratorWith(p jobs.Pipeline) *jobs.Orchestrator {
	return jobs.NewOrchestrator(a.store, a.store, p, a.cfg.OrchestratorConfig(), a.logger)
}

// discoveryEngine builds the engine. Web search is skipped when its
// credentials are missing; directory crawling always runs.
func (a *app) discoveryEngine(ctx context.Context) (*discovery.Engine, error) {
	var searcher search.Searcher
	if a.cfg.Search.APIKey != "" && a.cfg.Search.CX != "" {
		g, err := search.NewGoogleSearcher(ctx, a.cfg.Search.APIKey, a.cfg.Search.CX)
		if err != nil {
			return nil, err
		}
		searcher = g
	} else {
		a.logger.Warn("GOOGLE_SEARCH_API_KEY or GOOGLE_SEARCH_CX not set; web search disabled")
	}
	directory := search.NewCollyCrawler(a.cfg.Fetch.UserAgent, a.cfg.Discovery.SearchDelay, a.logger)
	return discovery.NewEngine(searcher, directory, a.store, a.cfg.DiscoveryEngineConfig(), a.logger), nil
}
