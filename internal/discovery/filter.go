package discovery

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/jonathan/foodtruck-agent/internal/fetch"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\x60\[\]{}|\\^]+`)

const trailingPunctuation = `.,;:!?)]}'"*`

// blockedHosts are social, review and delivery platforms. Vendor pages there are
// not scraped directly.
var blockedHosts = []string{
	"facebook.com", "fb.com", "instagram.com", "twitter.com", "x.com", "tiktok.com",
	"youtube.com", "youtu.be", "linkedin.com", "pinterest.com", "reddit.com",
	"yelp.com", "tripadvisor.com", "foursquare.com", "zomato.com", "opentable.com",
	"google.com", "goo.gl", "apple.com", "bing.com", "wikipedia.org",
	"doordash.com", "ubereats.com", "grubhub.com", "postmates.com", "seamless.com",
	"eventbrite.com", "nextdoor.com",
}

var foodTruckKeywords = []string{
	"foodtruck", "food-truck", "food_truck", "truck", "streetfood", "street-food",
	"mobile-food", "mobilefood", "taco", "bbq", "barbecue", "catering", "kitchen",
	"eats", "grill", "cuisine", "menu",
}

var publisherHostHints = []string{
	"blog", "news", "magazine", "times", "post", "gazette", "herald", "tribune",
	"journal", "medium.com", "wordpress.com", "blogspot.com", "substack.com", "patch.com",
}

var publisherPathSegments = map[string]bool{
	"blog": true, "blogs": true, "news": true, "article": true, "articles": true,
	"story": true, "stories": true, "press": true,
}

var businessTLDs = map[string]bool{
	"com": true, "net": true, "biz": true, "co": true, "us": true, "org": true,
	"food": true, "menu": true, "restaurant": true, "kitchen": true,
}

var skippedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".css": true, ".js": true, ".xml": true, ".json": true, ".zip": true,
}

// ExtractURLs returns every http(s) URL in text, with trailing punctuation trimmed.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, trailingPunctuation)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// LooksLikeFoodTruckURL applies the pattern rules of the URL filter: blocked
// platforms are rejected, food-truck keywords are accepted, and other business
// domains are accepted unless they look like a publisher.
func LooksLikeFoodTruckURL(raw string) bool {
	parsed, err := url.Parse(fetch.NormalizeURL(raw))
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	for _, blocked := range blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return false
		}
	}
	lowerPath := strings.ToLower(parsed.Path)
	if skippedExtensions[path.Ext(lowerPath)] {
		return false
	}

	haystack := host + lowerPath
	for _, kw := range foodTruckKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}

	if isPublisher(host, lowerPath) {
		return false
	}
	labels := strings.Split(host, ".")
	return businessTLDs[labels[len(labels)-1]]
}

func isPublisher(host, lowerPath string) bool {
	for _, hint := range publisherHostHints {
		if strings.Contains(host, hint) {
			return true
		}
	}
	for _, segment := range strings.Split(lowerPath, "/") {
		if publisherPathSegments[segment] {
			return true
		}
	}
	return false
}

// URLFilter decides whether a URL is worth queuing. URLs already known to the
// store are always rejected.
type URLFilter struct {
	known map[string]bool
}

// NewURLFilter creates a filter that rejects the given known URLs.
func NewURLFilter(known []string) *URLFilter {
	f := &URLFilter{known: make(map[string]bool, len(known))}
	for _, u := range known {
		if n := fetch.NormalizeURL(u); n != "" {
			f.known[n] = true
		}
	}
	return f
}

// IsKnown reports whether the URL is already a truck source or a queued discovered URL.
func (f *URLFilter) IsKnown(raw string) bool {
	return f.known[fetch.NormalizeURL(raw)]
}

// Verdict is the filter's decision on one URL.
type Verdict int

// Verdicts
const (
	Rejected Verdict = iota // fails the pattern rules
	Known                   // already a truck source or queued
	Accepted
)

// Check applies the pattern rules first, so a rejected URL is never reported as Known.
func (f *URLFilter) Check(raw string) Verdict {
	switch {
	case !LooksLikeFoodTruckURL(raw):
		return Rejected
	case f.IsKnown(raw):
		return Known
	default:
		return Accepted
	}
}
