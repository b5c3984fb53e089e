// Package similarity provides the field-level scorers used by duplicate detection.
// Every function is pure and returns a value in [0, 1].
package similarity

import (
	"math"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/jonathan/foodtruck-agent/internal/types"
)

// Field weights for the overall score. They sum to 1.
const (
	WeightName     = 0.4
	WeightLocation = 0.3
	WeightContact  = 0.2
	WeightMenu     = 0.1
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// GPS proximity bounds
const (
	GPSExactKm   = 0.1
	GPSFalloffKm = 1.0
)

// FieldScores holds the four per-field similarities for one pair of records.
type FieldScores struct {
	Name     float64 `json:"name"`
	Location float64 `json:"location"`
	Contact  float64 `json:"contact"`
	Menu     float64 `json:"menu"`
}

// Overall combines the field scores with the fixed weights.
func (f FieldScores) Overall() float64 {
	score := f.Name*WeightName + f.Location*WeightLocation + f.Contact*WeightContact + f.Menu*WeightMenu
	// round off float noise so four perfect fields give exactly 1
	return clamp01(math.Round(score*1e9) / 1e9)
}

// Compare scores a candidate against an existing truck.
func Compare(candidate *types.CandidateRecord, existing *types.Truck) FieldScores {
	return FieldScores{
		Name:     StringSimilarity(candidate.Name, existing.Name),
		Location: LocationSimilarity(candidate.Location, existing.CurrentLocation),
		Contact:  ContactSimilarity(candidate.ContactInfo, existing.ContactInfo),
		Menu:     MenuSimilarity(candidate.Menu, existing.Menu),
	}
}

// StringSimilarity converts the Levenshtein distance of two normalized strings
// into 1 - distance/max(len). Empty input scores 0.
func StringSimilarity(a, b string) float64 {
	a = normalizeText(a)
	b = normalizeText(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	distance := levenshtein.ComputeDistance(a, b)
	return clamp01(1 - float64(distance)/float64(maxLen))
}

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// GPSSimilarity maps a distance to a proximity score: 1 within 0.1 km,
// then linear falloff reaching 0 at 1 km.
func GPSSimilarity(distanceKm float64) float64 {
	if distanceKm <= GPSExactKm {
		return 1
	}
	return math.Max(0, 1-distanceKm/GPSFalloffKm)
}

// LocationSimilarity averages address similarity and GPS proximity,
// using whichever of the two is available on both sides.
func LocationSimilarity(a, b types.Location) float64 {
	var total float64
	var factors int

	if strings.TrimSpace(a.Address) != "" && strings.TrimSpace(b.Address) != "" {
		total += StringSimilarity(a.Address, b.Address)
		factors++
	}

	if a.HasCoordinates() && b.HasCoordinates() {
		distance := HaversineKm(*a.Lat, *a.Lng, *b.Lat, *b.Lng)
		total += GPSSimilarity(distance)
		factors++
	}

	if factors == 0 {
		return 0
	}
	return clamp01(total / float64(factors))
}

// ContactSimilarity is the fraction of contact fields present on both sides that match exactly
// after normalization (phone digits, website without scheme or trailing slash, email case).
func ContactSimilarity(a, b types.ContactInfo) float64 {
	var matches, comparable int

	if pa, pb := NormalizePhone(a.Phone), NormalizePhone(b.Phone); pa != "" && pb != "" {
		comparable++
		if pa == pb {
			matches++
		}
	}

	if wa, wb := NormalizeWebsite(a.Website), NormalizeWebsite(b.Website); wa != "" && wb != "" {
		comparable++
		if wa == wb {
			matches++
		}
	}

	if ea, eb := normalizeText(a.Email), normalizeText(b.Email); ea != "" && eb != "" {
		comparable++
		if ea == eb {
			matches++
		}
	}

	if comparable == 0 {
		return 0
	}
	return float64(matches) / float64(comparable)
}

// MenuSimilarity is the Jaccard overlap of lower-cased category names.
func MenuSimilarity(a, b []types.MenuCategory) float64 {
	setA := categorySet(a)
	setB := categorySet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for name := range setA {
		if setB[name] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// NormalizeWebsite lower-cases a website and strips its scheme, "www." and trailing slash.
func NormalizeWebsite(website string) string {
	website = strings.ToLower(strings.TrimSpace(website))
	if website == "" {
		return ""
	}
	if parsed, err := url.Parse(website); err == nil && parsed.Host != "" {
		website = parsed.Host + parsed.Path
	} else {
		website = strings.TrimPrefix(website, "https://")
		website = strings.TrimPrefix(website, "http://")
	}
	website = strings.TrimPrefix(website, "www.")
	return strings.TrimRight(website, "/")
}

func categorySet(menu []types.MenuCategory) map[string]bool {
	set := make(map[string]bool, len(menu))
	for _, category := range menu {
		name := normalizeText(category.Category)
		if name != "" {
			set[name] = true
		}
	}
	return set
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
