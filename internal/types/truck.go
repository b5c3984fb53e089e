package types

import (
	"time"

	"github.com/google/uuid"
)

// PriceRange is the price tier of a truck ("$" to "$$$$").
type PriceRange string

// Price range values
const (
	PriceBudget     PriceRange = "$"
	PriceModerate   PriceRange = "$$"
	PriceUpscale    PriceRange = "$$$"
	PricePremium    PriceRange = "$$$$"
	PriceRangeUnset PriceRange = ""
)

// Valid reports whether p is one of the known tiers or unset.
func (p PriceRange) Valid() bool {
	switch p {
	case PriceBudget, PriceModerate, PriceUpscale, PricePremium, PriceRangeUnset:
		return true
	}
	return false
}

// Weekdays lists the keys of OperatingHours in calendar order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Verification status values for persisted trucks
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationFlagged  = "flagged"
)

// Location is where a truck operates.
type Location struct {
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	RawText string   `json:"raw_text,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

// DailyHours holds the hours for one weekday.
type DailyHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed"`
}

// OperatingHours maps a lower-case weekday name to its hours.
type OperatingHours map[string]DailyHours

// ClosedAllWeek returns hours with every weekday marked closed.
func ClosedAllWeek() OperatingHours {
	hours := make(OperatingHours, len(Weekdays))
	for _, day := range Weekdays {
		hours[day] = DailyHours{Closed: true}
	}
	return hours
}

// MenuItem is a single dish.
type MenuItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	DietaryTags []string `json:"dietary_tags"`
}

// MenuCategory groups menu items.
type MenuCategory struct {
	Category string     `json:"category"`
	Items    []MenuItem `json:"items"`
}

// ContactInfo holds optional contact channels.
type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// CandidateRecord is structured vendor data extracted from raw content, not yet committed to the store.
type CandidateRecord struct {
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	CuisineTypes    []string          `json:"cuisine_type"`
	PriceRange      PriceRange        `json:"price_range,omitempty"`
	Specialties     []string          `json:"specialties"`
	Location        Location          `json:"current_location"`
	OperatingHours  OperatingHours    `json:"operating_hours"`
	Menu            []MenuCategory    `json:"menu"`
	ContactInfo     ContactInfo       `json:"contact_info"`
	SocialMedia     map[string]string `json:"social_media"`
	SourceURL       string            `json:"source_url,omitempty"`
	ConfidenceScore float64           `json:"confidence_score"`
}

// Truck is the canonical persisted vendor record.
type Truck struct {
	ID                 uuid.UUID         `json:"id"`
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	CurrentLocation    Location          `json:"current_location"`
	OperatingHours     OperatingHours    `json:"operating_hours"`
	Menu               []MenuCategory    `json:"menu"`
	ContactInfo        ContactInfo       `json:"contact_info"`
	SocialMedia        map[string]string `json:"social_media"`
	CuisineTypes       []string          `json:"cuisine_type"`
	PriceRange         PriceRange        `json:"price_range,omitempty"`
	Specialties        []string          `json:"specialties"`
	DataQualityScore   float64           `json:"data_quality_score"`
	VerificationStatus string            `json:"verification_status"`
	SourceURLs         []string          `json:"source_urls"`
	LastScrapedAt      *time.Time        `json:"last_scraped_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}
