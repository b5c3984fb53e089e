package ratelimit

import "strings"

// MatchTier returns the tier listing method and path. Exact routes win over prefix
// routes; ok is false when no tier lists the request.
func MatchTier(tiers []Tier, method, path string) (tier Tier, ok bool) {
	var prefix *Tier
	prefixLen := 0
	for i := range tiers {
		for _, route := range tiers[i].Routes {
			m, p, found := strings.Cut(route, " ")
			if !found || m != method {
				continue
			}
			if p == path {
				return tiers[i], true
			}
			if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) && len(p) > prefixLen {
				prefix, prefixLen = &tiers[i], len(p)
			}
		}
	}
	if prefix != nil {
		return *prefix, true
	}
	return Tier{}, false
}
