package ratelimit

import "time"

// Tier is a request budget shared by every route it lists. A client spending it on
// one route has less left for the others.
type Tier struct {
	Name   string
	Routes []string // "METHOD /path"; a path ending in "/" matches as a prefix
	Limit  int      // requests per Window; 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity, Limit when 0
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	Default Tier // applied to requests no tier lists
	Tiers   []Tier
	// Exempt client IPs are never limited, e.g. an operator dashboard or a
	// co-located scheduler.
	Exempt []string
	// Buckets idle for IdleTTL are dropped every CleanupInterval.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// Tier names
const (
	TierUnlimited  = "unlimited"
	TierExtraction = "extraction"
	TierDiscovery  = "discovery"
	TierWrites     = "writes"
	TierDefault    = "default"
)

// DefaultConfig returns an enabled limiter configuration with the default tiers.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Default:         Tier{Name: TierDefault, Limit: 1000, Window: time.Minute},
		Tiers:           DefaultTiers(),
		IdleTTL:         time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// DefaultTiers prices routes by what one request costs downstream.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: TierUnlimited, Routes: []string{"GET /health"}},
		// Crawl plus model call per request.
		{
			Name:   TierExtraction,
			Routes: []string{"POST /pipeline/run", "POST /pipeline/stream", "POST /jobs/"},
			Limit:  30,
			Window: time.Hour,
			Burst:  5,
		},
		// Dozens of searches per run.
		{Name: TierDiscovery, Routes: []string{"POST /discovery/run"}, Limit: 4, Window: time.Hour, Burst: 1},
		{
			Name:   TierWrites,
			Routes: []string{"POST /jobs", "POST /duplicates/check", "POST /scheduler/tasks/"},
			Limit:  100,
			Window: time.Minute,
			Burst:  10,
		},
	}
}

func (t Tier) capacity() int {
	if t.Burst > 0 {
		return t.Burst
	}
	return t.Limit
}

// interval is how long one token takes to come back.
func (t Tier) interval() time.Duration {
	return max(t.Window/time.Duration(t.Limit), time.Nanosecond)
}
