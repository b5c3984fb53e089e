// Package ratelimit limits API requests per client and tier with token buckets.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Info is the outcome of one Allow call, enough to fill the X-RateLimit headers.
type Info struct {
	Allowed    bool
	Tier       string
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucketKey struct {
	client string
	tier   string
}

type bucket struct {
	tokens   float64
	refilled time.Time
}

// Limiter holds one token bucket per client and tier.
type Limiter struct {
	cfg    Config
	exempt map[string]bool
	now    func() time.Time

	mu      sync.Mutex
	buckets map[bucketKey]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter; a nil config means DefaultConfig. Call Stop to end
// the cleanup loop.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Limiter{
		cfg:     *cfg,
		exempt:  make(map[string]bool, len(cfg.Exempt)),
		now:     time.Now,
		buckets: make(map[bucketKey]*bucket),
		stop:    make(chan struct{}),
	}
	for _, ip := range cfg.Exempt {
		l.exempt[ip] = true
	}
	if cfg.Enabled && cfg.CleanupInterval > 0 && cfg.IdleTTL > 0 {
		go l.cleanupLoop(cfg.CleanupInterval)
	}
	return l
}

// Allow spends one token from the client's bucket for the tier the route belongs to.
func (l *Limiter) Allow(clientID, method, path string) Info {
	if !l.cfg.Enabled || l.exempt[clientID] {
		return Info{Allowed: true}
	}
	tier, ok := MatchTier(l.cfg.Tiers, method, path)
	if !ok {
		tier = l.cfg.Default
	}
	if tier.Limit <= 0 || tier.Window <= 0 {
		return Info{Allowed: true, Tier: tier.Name}
	}

	now := l.now()
	capacity := float64(tier.capacity())
	interval := tier.interval()

	l.mu.Lock()
	defer l.mu.Unlock()

	key := bucketKey{client: clientID, tier: tier.Name}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, refilled: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(capacity, b.tokens+float64(now.Sub(b.refilled))/float64(interval))
	b.refilled = now

	info := Info{Tier: tier.Name, Limit: tier.Limit}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	} else {
		info.RetryAfter = tokensToDuration(1-b.tokens, interval)
	}
	info.Remaining = int(b.tokens)
	info.ResetTime = now.Add(tokensToDuration(capacity-b.tokens, interval))
	return info
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets untouched for IdleTTL. A dropped bucket comes back full.
func (l *Limiter) sweep() int {
	cutoff := l.now().Add(-l.cfg.IdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	dropped := 0
	for key, b := range l.buckets {
		if b.refilled.Before(cutoff) {
			delete(l.buckets, key)
			dropped++
		}
	}
	return dropped
}

func tokensToDuration(tokens float64, interval time.Duration) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(tokens * float64(interval)))
}
