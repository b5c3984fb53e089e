package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosedAllWeek(t *testing.T) {
	hours := ClosedAllWeek()

	assert.Len(t, hours, 7)
	for _, day := range Weekdays {
		h, ok := hours[day]
		assert.True(t, ok, "missing %s", day)
		assert.True(t, h.Closed)
	}
}

func TestPriceRange_Valid(t *testing.T) {
	for _, p := range []PriceRange{PriceBudget, PriceModerate, PriceUpscale, PricePremium, PriceRangeUnset} {
		assert.True(t, p.Valid(), "expected %q to be valid", p)
	}
	assert.False(t, PriceRange("$$$$$").Valid())
	assert.False(t, PriceRange("cheap").Valid())
}

func TestLocation_HasCoordinates(t *testing.T) {
	lat, lng := 32.7765, -79.9311

	assert.True(t, Location{Lat: &lat, Lng: &lng}.HasCoordinates())
	assert.False(t, Location{Lat: &lat}.HasCoordinates())
	assert.False(t, Location{Address: "123 King St"}.HasCoordinates())
}
