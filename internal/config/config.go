// Package config loads agent configuration from an optional YAML file and the environment.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/foodtruck-agent/internal/discovery"
	"github.com/jonathan/foodtruck-agent/internal/fetch"
	"github.com/jonathan/foodtruck-agent/internal/jobs"
	"github.com/jonathan/foodtruck-agent/internal/llm"
	"github.com/jonathan/foodtruck-agent/internal/server/ratelimit"
)

// EnvPrefix prefixes every environment override, e.g. FOODTRUCK_JOBS_WORKERS.
const EnvPrefix = "FOODTRUCK"

// Config is the full agent configuration.
type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	DatabaseURL string          `mapstructure:"database_url"`
	RedisURL    string          `mapstructure:"redis_url"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Search      SearchConfig    `mapstructure:"search"`
	Fetch       FetchConfig     `mapstructure:"fetch"`
	Discovery   DiscoveryConfig `mapstructure:"discovery"`
	Jobs        JobsConfig      `mapstructure:"jobs"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Log         LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             int  `mapstructure:"port"`
	RateLimitEnabled bool `mapstructure:"rate_limit_enabled"`
	// RateLimitExempt lists client IPs the limiter never throttles.
	RateLimitExempt []string `mapstructure:"rate_limit_exempt"`
}

// LLMConfig configures the extraction model.
type LLMConfig struct {
	APIKey          string `mapstructure:"api_key"`
	ModelTier       string `mapstructure:"model_tier"`
	MaxContentChars int    `mapstructure:"max_content_chars"`
}

// SearchConfig holds the Custom Search credentials.
type SearchConfig struct {
	APIKey string `mapstructure:"api_key"`
	CX     string `mapstructure:"cx"`
}

// FetchConfig configures page crawling.
type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	UseBrowser    bool          `mapstructure:"use_browser"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// DiscoveryConfig lists discovery sources and limits.
type DiscoveryConfig struct {
	SearchTerms        []string      `mapstructure:"search_terms"`
	DirectoryURLs      []string      `mapstructure:"directory_urls"`
	Cities             []string      `mapstructure:"cities"`
	DefaultRegion      string        `mapstructure:"default_region"`
	MaxResultsPerQuery int           `mapstructure:"max_results_per_query"`
	SearchDelay        time.Duration `mapstructure:"search_delay"`
	CrawlMaxDepth      int           `mapstructure:"crawl_max_depth"`
	CrawlMaxURLs       int           `mapstructure:"crawl_max_urls"`
	QueueLimit         int           `mapstructure:"queue_limit"`
}

// JobsConfig tunes job processing.
type JobsConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	Workers    int `mapstructure:"workers"`
	BatchSize  int `mapstructure:"batch_size"`
}

// SchedulerConfig sets the periodic task intervals in minutes.
type SchedulerConfig struct {
	DiscoveryIntervalMinutes int `mapstructure:"discovery_interval_minutes"`
	JobsIntervalMinutes      int `mapstructure:"jobs_interval_minutes"`
	RetryIntervalMinutes     int `mapstructure:"retry_interval_minutes"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// plainEnv maps keys to the unprefixed variables most deployments already set.
var plainEnv = map[string]string{
	"database_url":   "DATABASE_URL",
	"redis_url":      "REDIS_URL",
	"llm.api_key":    "GEMINI_API_KEY",
	"search.api_key": "GOOGLE_SEARCH_API_KEY",
	"search.cx":      "GOOGLE_SEARCH_CX",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	d := discovery.DefaultConfig()
	j := jobs.DefaultConfig()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_enabled", true)
	v.SetDefault("server.rate_limit_exempt", []string{})
	v.SetDefault("llm.model_tier", string(llm.TierStandard))
	v.SetDefault("llm.max_content_chars", llm.DefaultConfig().MaxContentChars)
	v.SetDefault("fetch.timeout", fetch.DefaultTimeout)
	v.SetDefault("fetch.user_agent", fetch.DefaultUserAgent)
	v.SetDefault("fetch.use_browser", false)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.cache_ttl", fetch.DefaultCacheTTL)
	v.SetDefault("discovery.search_terms", d.SearchTerms)
	v.SetDefault("discovery.directory_urls", d.DirectoryURLs)
	v.SetDefault("discovery.cities", d.Cities)
	v.SetDefault("discovery.default_region", d.DefaultRegion)
	v.SetDefault("discovery.max_results_per_query", d.MaxResultsPerQuery)
	v.SetDefault("discovery.search_delay", d.SearchDelay)
	v.SetDefault("discovery.crawl_max_depth", d.CrawlMaxDepth)
	v.SetDefault("discovery.crawl_max_urls", d.CrawlMaxURLs)
	v.SetDefault("discovery.queue_limit", 50)
	v.SetDefault("jobs.max_retries", j.MaxRetries)
	v.SetDefault("jobs.workers", j.Workers)
	v.SetDefault("jobs.batch_size", 20)
	v.SetDefault("scheduler.discovery_interval_minutes", 24*60)
	v.SetDefault("scheduler.jobs_interval_minutes", 5)
	v.SetDefault("scheduler.retry_interval_minutes", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration into v and decodes it. path names an optional YAML
// file; an empty path skips the file and uses defaults plus the environment.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range plainEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks numeric ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' out of range: %d", c.Server.Port)
	}
	if c.LLM.MaxContentChars < 0 {
		return fmt.Errorf("config error: 'llm.max_content_chars' must be non-negative")
	}
	if c.Fetch.Timeout < 0 || c.Fetch.CacheTTL < 0 {
		return fmt.Errorf("config error: fetch durations must be non-negative")
	}

	counts := map[string]int{
		"discovery.max_results_per_query": c.Discovery.MaxResultsPerQuery,
		"discovery.crawl_max_depth":       c.Discovery.CrawlMaxDepth,
		"discovery.crawl_max_urls":        c.Discovery.CrawlMaxURLs,
		"discovery.queue_limit":           c.Discovery.QueueLimit,
		"jobs.max_retries":                c.Jobs.MaxRetries,
		"jobs.batch_size":                 c.Jobs.BatchSize,
	}
	for _, key := range sortedKeys(counts) {
		if counts[key] < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", key)
		}
	}
	if c.Discovery.SearchDelay < 0 {
		return fmt.Errorf("config error: 'discovery.search_delay' must be non-negative")
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("config error: 'jobs.workers' must be at least 1")
	}

	intervals := map[string]int{
		"scheduler.discovery_interval_minutes": c.Scheduler.DiscoveryIntervalMinutes,
		"scheduler.jobs_interval_minutes":      c.Scheduler.JobsIntervalMinutes,
		"scheduler.retry_interval_minutes":     c.Scheduler.RetryIntervalMinutes,
	}
	for _, key := range sortedKeys(intervals) {
		if intervals[key] < 1 {
			return fmt.Errorf("config error: '%s' must be at least 1", key)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: unknown log level %q", c.Log.Level)
	}
	return nil
}

// DiscoveryEngineConfig converts the discovery section for discovery.NewEngine.
func (c *Config) DiscoveryEngineConfig() discovery.Config {
	return discovery.Config{
		SearchTerms:        c.Discovery.SearchTerms,
		DirectoryURLs:      c.Discovery.DirectoryURLs,
		Cities:             c.Discovery.Cities,
		DefaultRegion:      c.Discovery.DefaultRegion,
		MaxResultsPerQuery: c.Discovery.MaxResultsPerQuery,
		SearchDelay:        c.Discovery.SearchDelay,
		CrawlMaxDepth:      c.Discovery.CrawlMaxDepth,
		CrawlMaxURLs:       c.Discovery.CrawlMaxURLs,
		JobMaxRetries:      c.Jobs.MaxRetries,
	}
}

// OrchestratorConfig converts the jobs section for jobs.NewOrchestrator.
func (c *Config) OrchestratorConfig() jobs.Config {
	return jobs.Config{MaxRetries: c.Jobs.MaxRetries, Workers: c.Jobs.Workers}
}

// CrawlerConfig converts the fetch section for fetch.NewPageCrawler.
func (c *Config) CrawlerConfig() fetch.CrawlerConfig {
	return fetch.CrawlerConfig{
		Options:        &fetch.Options{Timeout: c.Fetch.Timeout, UserAgent: c.Fetch.UserAgent},
		RespectRobots:  c.Fetch.RespectRobots,
		UseBrowser:     c.Fetch.UseBrowser,
		BrowserTimeout: c.Fetch.Timeout,
	}
}

// RateLimitConfig applies the server section to the default limiter tiers.
func (c *Config) RateLimitConfig() *ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.Enabled = c.Server.RateLimitEnabled
	rl.Exempt = c.Server.RateLimitExempt
	return rl
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
