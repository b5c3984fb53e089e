package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// MergeTrucks combines two records field by field. Target values win when present;
// contact info and social handles are merged key-wise with target keys on top;
// source URLs are unioned. The result keeps the target's identity.
func MergeTrucks(target, source types.Truck, now time.Time) types.Truck {
	merged := target

	merged.Name = firstString(target.Name, source.Name)
	merged.Description = firstString(target.Description, source.Description)
	if target.PriceRange == types.PriceRangeUnset {
		merged.PriceRange = source.PriceRange
	}
	merged.VerificationStatus = firstString(target.VerificationStatus, source.VerificationStatus)

	if locationEmpty(target.CurrentLocation) {
		merged.CurrentLocation = source.CurrentLocation
	}
	if len(target.OperatingHours) == 0 {
		merged.OperatingHours = source.OperatingHours
	}
	if len(target.Menu) == 0 {
		merged.Menu = source.Menu
	}
	if len(target.CuisineTypes) == 0 {
		merged.CuisineTypes = source.CuisineTypes
	}
	if len(target.Specialties) == 0 {
		merged.Specialties = source.Specialties
	}
	if target.DataQualityScore == 0 {
		merged.DataQualityScore = source.DataQualityScore
	}

	merged.ContactInfo = types.ContactInfo{
		Phone:   firstString(target.ContactInfo.Phone, source.ContactInfo.Phone),
		Email:   firstString(target.ContactInfo.Email, source.ContactInfo.Email),
		Website: firstString(target.ContactInfo.Website, source.ContactInfo.Website),
	}

	social := make(map[string]string, len(source.SocialMedia)+len(target.SocialMedia))
	for k, v := range source.SocialMedia {
		social[k] = v
	}
	for k, v := range target.SocialMedia {
		social[k] = v
	}
	merged.SocialMedia = social

	merged.SourceURLs = unionStrings(target.SourceURLs, source.SourceURLs)

	scraped := now
	merged.LastScrapedAt = &scraped
	return merged
}

// RefreshTruck applies freshly extracted values over an existing record, keeping
// the existing identity and anything the fresh record lacks.
func RefreshTruck(existing, fresh types.Truck, now time.Time) types.Truck {
	refreshed := MergeTrucks(fresh, existing, now)
	refreshed.ID = existing.ID
	refreshed.CreatedAt = existing.CreatedAt
	refreshed.VerificationStatus = firstString(existing.VerificationStatus, fresh.VerificationStatus)
	return refreshed
}

// Merger merges stored duplicates.
type Merger struct {
	trucks store.TruckStore
	now    func() time.Time
	logger *zap.Logger
}

// NewMerger creates a Merger.
func NewMerger(trucks store.TruckStore, logger *zap.Logger) *Merger {
	return &Merger{trucks: trucks, now: time.Now, logger: logger}
}

// MergeDuplicates folds source into target and writes the result to target in a
// single update. Nothing is written if either record cannot be loaded.
func (m *Merger) MergeDuplicates(ctx context.Context, targetID, sourceID uuid.UUID) (*types.Truck, error) {
	if targetID == sourceID {
		return nil, fmt.Errorf("cannot merge truck %s into itself", targetID)
	}

	target, err := m.trucks.GetTruck(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target truck %s: %w", targetID, err)
	}
	source, err := m.trucks.GetTruck(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source truck %s: %w", sourceID, err)
	}

	merged := MergeTrucks(*target, *source, m.now())
	updated, err := m.trucks.UpdateTruck(ctx, targetID, &merged)
	if err != nil {
		return nil, fmt.Errorf("failed to save merged truck %s: %w", targetID, err)
	}

	m.logger.Info("Merged duplicate trucks",
		zap.String("target_id", targetID.String()),
		zap.String("source_id", sourceID.String()),
		zap.Int("source_urls", len(updated.SourceURLs)))
	return updated, nil
}

func firstString(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func locationEmpty(l types.Location) bool {
	return l.Address == "" && l.RawText == "" && !l.HasCoordinates()
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
