package fetch

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a URL for de-duplication: https is assumed when no
// scheme is given, the host is lower-cased without "www.", and the fragment and
// trailing slash are dropped. Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	return parsed.String()
}

// Host returns the normalized host of a URL, or "" when it has none.
func Host(raw string) string {
	parsed, err := url.Parse(NormalizeURL(raw))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
