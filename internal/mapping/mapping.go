// Package mapping converts loosely-typed extraction output into candidate and persisted truck records.
//
// Mapping happens in two steps: ParseExtraction applies every fallback rule and
// returns a fully-defaulted CandidateRecord, then ToTruck maps that record onto
// the persisted schema without further defaulting.
package mapping

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/foodtruck-agent/internal/types"
)

// DefaultName is used when the extractor returns no name.
const DefaultName = "Unknown Food Truck"

// DefaultConfidence is used when the extractor returns no numeric confidence.
const DefaultConfidence = 0.5

// ParseExtraction builds a CandidateRecord from raw extractor output.
// sourceURL, when non-empty, wins over any source_url in the payload.
func ParseExtraction(raw map[string]any, sourceURL string) types.CandidateRecord {
	c := types.CandidateRecord{
		Name:            DefaultName,
		CuisineTypes:    []string{},
		Specialties:     []string{},
		OperatingHours:  types.ClosedAllWeek(),
		Menu:            []types.MenuCategory{},
		SocialMedia:     map[string]string{},
		ConfidenceScore: DefaultConfidence,
	}
	if raw == nil {
		c.SourceURL = sourceURL
		return c
	}

	if name := stringField(raw, "name"); name != "" {
		c.Name = name
	}
	c.Description = stringField(raw, "description")
	c.CuisineTypes = stringSet(first(raw, "cuisine_type", "cuisine_types", "cuisine"))
	c.Specialties = stringSet(raw["specialties"])

	if pr := types.PriceRange(stringField(raw, "price_range")); pr.Valid() {
		c.PriceRange = pr
	}

	c.Location = parseLocation(first(raw, "current_location", "location"))
	c.OperatingHours = parseHours(raw["operating_hours"])
	c.Menu = parseMenu(raw["menu"])
	c.ContactInfo = parseContact(first(raw, "contact_info", "contact"))
	c.SocialMedia = parseSocial(first(raw, "social_media", "social"))

	c.SourceURL = sourceURL
	if c.SourceURL == "" {
		c.SourceURL = stringField(raw, "source_url")
	}

	c.ConfidenceScore = Confidence(raw["confidence_score"])
	return c
}

// Confidence returns v as a score in [0,1]. Missing values and anything that is
// not a JSON number, including numeric strings, yield DefaultConfidence.
func Confidence(v any) float64 {
	if _, isString := v.(string); isString {
		return DefaultConfidence
	}
	f, ok := number(v)
	if !ok || math.IsNaN(f) {
		return DefaultConfidence
	}
	return math.Max(0, math.Min(1, f))
}

// ToTruck maps a parsed candidate onto the persisted truck schema.
func ToTruck(c types.CandidateRecord, scrapedAt time.Time) types.Truck {
	sources := []string{}
	if c.SourceURL != "" {
		sources = append(sources, c.SourceURL)
	}
	scraped := scrapedAt
	return types.Truck{
		Name:               c.Name,
		Description:        c.Description,
		CurrentLocation:    c.Location,
		OperatingHours:     c.OperatingHours,
		Menu:               c.Menu,
		ContactInfo:        c.ContactInfo,
		SocialMedia:        c.SocialMedia,
		CuisineTypes:       c.CuisineTypes,
		PriceRange:         c.PriceRange,
		Specialties:        c.Specialties,
		DataQualityScore:   Confidence(c.ConfidenceScore),
		VerificationStatus: types.VerificationPending,
		SourceURLs:         sources,
		LastScrapedAt:      &scraped,
	}
}

// MapExtractedDataToTruck parses raw extractor output and maps it to a truck.
func MapExtractedDataToTruck(raw map[string]any, sourceURL string, scrapedAt time.Time) types.Truck {
	return ToTruck(ParseExtraction(raw, sourceURL), scrapedAt)
}

func parseLocation(v any) types.Location {
	m, ok := v.(map[string]any)
	if !ok {
		if s, isString := v.(string); isString {
			return types.Location{Address: strings.TrimSpace(s), RawText: s}
		}
		return types.Location{}
	}
	loc := types.Location{
		Address: stringField(m, "address"),
		RawText: stringField(m, "raw_text"),
	}
	lat, latOK := number(first(m, "lat", "latitude"))
	lng, lngOK := number(first(m, "lng", "longitude", "lon"))
	if latOK && lngOK && validCoordinate(lat, 90) && validCoordinate(lng, 180) {
		loc.Lat = &lat
		loc.Lng = &lng
	}
	return loc
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}

func parseHours(v any) types.OperatingHours {
	hours := types.ClosedAllWeek()
	m, ok := v.(map[string]any)
	if !ok {
		return hours
	}
	for key, raw := range m {
		day := strings.ToLower(strings.TrimSpace(key))
		if _, known := hours[day]; !known {
			continue
		}
		dm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		open := stringField(dm, "open")
		closeAt := stringField(dm, "close")
		closed, hasClosed := dm["closed"].(bool)
		if !hasClosed {
			closed = open == "" && closeAt == ""
		}
		hours[day] = types.DailyHours{Open: open, Close: closeAt, Closed: closed}
	}
	return hours
}

func parseMenu(v any) []types.MenuCategory {
	list, ok := v.([]any)
	if !ok {
		return []types.MenuCategory{}
	}
	menu := make([]types.MenuCategory, 0, len(list))
	for _, raw := range list {
		cm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cat := types.MenuCategory{
			Category: stringField(cm, "category"),
			Items:    []types.MenuItem{},
		}
		items, _ := cm["items"].([]any)
		for _, rawItem := range items {
			im, ok := rawItem.(map[string]any)
			if !ok {
				continue
			}
			item := types.MenuItem{
				Name:        stringField(im, "name"),
				Description: stringField(im, "description"),
				DietaryTags: stringSet(im["dietary_tags"]),
			}
			if item.Name == "" {
				continue
			}
			if price, ok := number(im["price"]); ok && !math.IsNaN(price) && price >= 0 {
				item.Price = &price
			}
			cat.Items = append(cat.Items, item)
		}
		if cat.Category == "" && len(cat.Items) == 0 {
			continue
		}
		menu = append(menu, cat)
	}
	return menu
}

func parseContact(v any) types.ContactInfo {
	m, ok := v.(map[string]any)
	if !ok {
		return types.ContactInfo{}
	}
	return types.ContactInfo{
		Phone:   stringField(m, "phone"),
		Email:   stringField(m, "email"),
		Website: stringField(m, "website"),
	}
}

func parseSocial(v any) map[string]string {
	social := map[string]string{}
	m, ok := v.(map[string]any)
	if !ok {
		return social
	}
	for platform, raw := range m {
		s, ok := raw.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			continue
		}
		social[strings.ToLower(strings.TrimSpace(platform))] = s
	}
	return social
}

// first returns the value of the first key present in m.
func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// stringSet accepts a list or a single string and returns trimmed, de-duplicated values in order.
func stringSet(v any) []string {
	var values []string
	switch t := v.(type) {
	case string:
		values = []string{t}
	case []string:
		values = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	}

	out := []string{}
	seen := make(map[string]bool, len(values))
	for _, s := range values {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// number accepts JSON numbers in any of the forms a decoder may produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
