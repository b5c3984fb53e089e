package fetch

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers whether a URL may be crawled, caching robots.txt per host.
// Hosts whose robots.txt cannot be fetched or parsed are treated as allowing everything.
type RobotsChecker struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

// NewRobotsChecker creates a checker for the given user agent.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether urlStr may be fetched.
func (r *RobotsChecker) Allowed(ctx context.Context, urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return false
	}

	group := r.group(ctx, u.Scheme, u.Host)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (r *RobotsChecker) group(ctx context.Context, scheme, host string) *robotstxt.Group {
	key := scheme + "://" + host

	r.mu.Lock()
	group, cached := r.groups[key]
	r.mu.Unlock()
	if cached {
		return group
	}

	group = r.load(ctx, key+"/robots.txt")

	r.mu.Lock()
	r.groups[key] = group
	r.mu.Unlock()
	return group
}

func (r *RobotsChecker) load(ctx context.Context, robotsURL string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(r.userAgent)
}
