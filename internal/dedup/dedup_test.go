package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

func ptr(f float64) *float64 { return &f }

func menu(names ...string) []types.MenuCategory {
	out := make([]types.MenuCategory, 0, len(names))
	for _, n := range names {
		out = append(out, types.MenuCategory{Category: n, Items: []types.MenuItem{{Name: n + " item"}}})
	}
	return out
}

func existingTruck() types.Truck {
	return types.Truck{
		ID:              uuid.New(),
		Name:            "Taco Loco",
		CurrentLocation: types.Location{Lat: ptr(37.7749), Lng: ptr(-122.4194)},
		ContactInfo:     types.ContactInfo{Phone: "(415) 555-0100", Website: "https://tacoloco.com"},
		Menu:            menu("Tacos"),
	}
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Confidence
	}{
		{1.0, ConfidenceHigh},
		{0.95, ConfidenceHigh},
		{0.949, ConfidenceMedium},
		{0.85, ConfidenceMedium},
		{0.849, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceFor(tt.score), "score %v", tt.score)
	}
}

func TestRecommendationFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Recommendation
	}{
		{0.96, RecommendMerge},
		{0.95, RecommendMerge},
		{0.92, RecommendUpdate},
		{0.9, RecommendUpdate},
		{0.82, RecommendManualReview},
		{0.8, RecommendManualReview},
		{0.79, RecommendSkip},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecommendationFor(tt.score), "score %v", tt.score)
	}
}

func TestDecideAction(t *testing.T) {
	tests := []struct {
		name string
		conf Confidence
		rec  Recommendation
		want Action
	}{
		{"high merge", ConfidenceHigh, RecommendMerge, ActionMerge},
		{"high update", ConfidenceHigh, RecommendUpdate, ActionUpdate},
		{"high review", ConfidenceHigh, RecommendManualReview, ActionManualReview},
		{"medium update", ConfidenceMedium, RecommendUpdate, ActionManualReview},
		{"medium merge", ConfidenceMedium, RecommendMerge, ActionManualReview},
		{"low review", ConfidenceLow, RecommendManualReview, ActionManualReview},
		{"low skip", ConfidenceLow, RecommendSkip, ActionManualReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideAction(tt.conf, tt.rec))
		})
	}
}

func TestClassify_NoExisting(t *testing.T) {
	result := Classify(&types.CandidateRecord{Name: "Taco Loco"}, nil)

	assert.False(t, result.IsDuplicate)
	assert.Empty(t, result.Matches)
	assert.Nil(t, result.BestMatch)
	assert.Equal(t, ActionCreate, result.Action)
	assert.Equal(t, NoDuplicatesReason, result.Reason)
}

func TestClassify_ExactMatchMerges(t *testing.T) {
	existing := existingTruck()
	candidate := &types.CandidateRecord{
		Name:        "Taco Loco",
		Location:    types.Location{Lat: ptr(37.7749), Lng: ptr(-122.4194)},
		ContactInfo: types.ContactInfo{Phone: "415-555-0100", Website: "tacoloco.com/"},
		Menu:        menu("tacos"),
	}

	result := Classify(candidate, []types.Truck{existing})

	require.True(t, result.IsDuplicate)
	require.NotNil(t, result.BestMatch)
	assert.Equal(t, existing.ID, result.BestMatch.Truck.ID)
	assert.InDelta(t, 1.0, result.BestMatch.Similarity, 1e-9)
	assert.Equal(t, ConfidenceHigh, result.BestMatch.Confidence)
	assert.Equal(t, RecommendMerge, result.BestMatch.Recommendation)
	assert.Equal(t, []string{FieldName, FieldLocation, FieldContact, FieldMenu}, result.BestMatch.MatchedFields)
	assert.Equal(t, ActionMerge, result.Action)
	assert.Contains(t, result.Reason, "Found 1 potential duplicate(s)")
	assert.Contains(t, result.Reason, `"Taco Loco"`)
}

func TestClassify_BorderlineGoesToManualReview(t *testing.T) {
	existing := existingTruck()
	existing.Menu = menu("Tacos", "Burritos", "Drinks", "Sides", "Desserts")
	// name 1, location 1, contact 1/2, menu 1/5: 0.4 + 0.3 + 0.1 + 0.02
	candidate := &types.CandidateRecord{
		Name:        "Taco Loco",
		Location:    types.Location{Lat: ptr(37.7749), Lng: ptr(-122.4194)},
		ContactInfo: types.ContactInfo{Phone: "415-555-0100", Website: "https://other.example"},
		Menu:        menu("Tacos"),
	}

	result := Classify(candidate, []types.Truck{existing})

	require.True(t, result.IsDuplicate)
	assert.InDelta(t, 0.82, result.BestMatch.Similarity, 1e-9)
	assert.Equal(t, ConfidenceLow, result.BestMatch.Confidence)
	assert.Equal(t, RecommendManualReview, result.BestMatch.Recommendation)
	assert.Equal(t, []string{FieldName, FieldLocation}, result.BestMatch.MatchedFields)
	assert.Equal(t, ActionManualReview, result.Action)
}

func TestClassify_MediumConfidenceUpdateIsReviewed(t *testing.T) {
	existing := existingTruck()
	candidate := &types.CandidateRecord{
		Name:        "Taco Loco",
		Location:    types.Location{Lat: ptr(37.7749), Lng: ptr(-122.4194)},
		ContactInfo: types.ContactInfo{Phone: "4155550100"},
	}

	result := Classify(candidate, []types.Truck{existing})

	require.True(t, result.IsDuplicate)
	assert.InDelta(t, 0.9, result.BestMatch.Similarity, 1e-9)
	assert.Equal(t, ConfidenceMedium, result.BestMatch.Confidence)
	assert.Equal(t, RecommendUpdate, result.BestMatch.Recommendation)
	assert.Equal(t, ActionManualReview, result.Action)
}

func TestClassify_SortsMatchesAndIgnoresWeakOnes(t *testing.T) {
	strong := existingTruck()
	weaker := existingTruck()
	weaker.Menu = nil
	unrelated := types.Truck{ID: uuid.New(), Name: "Burger Barn"}

	candidate := &types.CandidateRecord{
		Name:        "Taco Loco",
		Location:    types.Location{Lat: ptr(37.7749), Lng: ptr(-122.4194)},
		ContactInfo: types.ContactInfo{Phone: "4155550100"},
		Menu:        menu("Tacos"),
	}

	result := Classify(candidate, []types.Truck{unrelated, weaker, strong})

	require.Len(t, result.Matches, 2)
	assert.Equal(t, strong.ID, result.Matches[0].Truck.ID)
	assert.Equal(t, weaker.ID, result.Matches[1].Truck.ID)
	assert.GreaterOrEqual(t, result.Matches[0].Similarity, result.Matches[1].Similarity)
	assert.Equal(t, strong.ID, result.BestMatch.Truck.ID)
}

func TestDetector_PagesThroughStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	for i := 0; i < 5; i++ {
		_, err := mem.CreateTruck(ctx, &types.Truck{Name: "Filler Truck " + string(rune('A'+i))})
		require.NoError(t, err)
	}
	target := existingTruck()
	created, err := mem.CreateTruck(ctx, &target)
	require.NoError(t, err)

	detector := NewDetector(mem, 2, zap.NewNop())
	result, err := detector.CheckForDuplicates(ctx, &types.CandidateRecord{
		Name:        "Taco Loco",
		Location:    types.Location{Lat: ptr(37.7749), Lng: ptr(-122.4194)},
		ContactInfo: types.ContactInfo{Phone: "4155550100", Website: "tacoloco.com"},
		Menu:        menu("Tacos"),
	})

	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)
	assert.Equal(t, created.ID, result.BestMatch.Truck.ID)
	assert.Equal(t, ActionMerge, result.Action)
}

func TestDetector_EmptyStoreCreates(t *testing.T) {
	detector := NewDetector(store.NewMemory(), 0, zap.NewNop())

	result, err := detector.CheckForDuplicates(context.Background(), &types.CandidateRecord{Name: "Anything"})

	require.NoError(t, err)
	assert.Equal(t, ActionCreate, result.Action)
	assert.False(t, result.IsDuplicate)
}

func TestMergeTrucks(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	target := types.Truck{
		ID:           uuid.New(),
		Name:         "Taco Loco",
		ContactInfo:  types.ContactInfo{Phone: "415-555-0100"},
		SocialMedia:  map[string]string{"instagram": "@tacoloco"},
		CuisineTypes: []string{"Mexican"},
		SourceURLs:   []string{"https://a.example"},
	}
	source := types.Truck{
		ID:              uuid.New(),
		Name:            "Taco Loco SF",
		Description:     "Street tacos",
		PriceRange:      types.PriceBudget,
		CurrentLocation: types.Location{Address: "1 Market St"},
		ContactInfo:     types.ContactInfo{Phone: "415-555-9999", Email: "hi@tacoloco.com"},
		SocialMedia:     map[string]string{"instagram": "@old", "twitter": "@tl"},
		CuisineTypes:    []string{"Tex-Mex"},
		Menu:            menu("Tacos"),
		SourceURLs:      []string{"https://b.example", "https://a.example"},
	}

	merged := MergeTrucks(target, source, now)

	assert.Equal(t, target.ID, merged.ID)
	assert.Equal(t, "Taco Loco", merged.Name)
	assert.Equal(t, "Street tacos", merged.Description)
	assert.Equal(t, types.PriceBudget, merged.PriceRange)
	assert.Equal(t, "1 Market St", merged.CurrentLocation.Address)
	assert.Equal(t, []string{"Mexican"}, merged.CuisineTypes)
	assert.Equal(t, menu("Tacos"), merged.Menu)
	assert.Equal(t, types.ContactInfo{Phone: "415-555-0100", Email: "hi@tacoloco.com"}, merged.ContactInfo)
	assert.Equal(t, map[string]string{"instagram": "@tacoloco", "twitter": "@tl"}, merged.SocialMedia)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, merged.SourceURLs)
	require.NotNil(t, merged.LastScrapedAt)
	assert.Equal(t, now, *merged.LastScrapedAt)
}

func TestRefreshTruck_FreshValuesWin(t *testing.T) {
	now := time.Now().UTC()
	created := now.Add(-48 * time.Hour)
	existing := types.Truck{
		ID:                 uuid.New(),
		Name:               "Taco Loco",
		Description:        "Old description",
		VerificationStatus: types.VerificationVerified,
		ContactInfo:        types.ContactInfo{Email: "old@tacoloco.com"},
		SourceURLs:         []string{"https://a.example"},
		CreatedAt:          created,
	}
	fresh := types.Truck{
		Name:               "Taco Loco",
		Description:        "New description",
		VerificationStatus: types.VerificationPending,
		ContactInfo:        types.ContactInfo{Phone: "415-555-0100"},
		SourceURLs:         []string{"https://b.example"},
	}

	refreshed := RefreshTruck(existing, fresh, now)

	assert.Equal(t, existing.ID, refreshed.ID)
	assert.Equal(t, created, refreshed.CreatedAt)
	assert.Equal(t, "New description", refreshed.Description)
	assert.Equal(t, types.VerificationVerified, refreshed.VerificationStatus)
	assert.Equal(t, types.ContactInfo{Phone: "415-555-0100", Email: "old@tacoloco.com"}, refreshed.ContactInfo)
	assert.ElementsMatch(t, []string{"https://a.example", "https://b.example"}, refreshed.SourceURLs)
}

func TestMerger_MergeDuplicates(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	target, err := mem.CreateTruck(ctx, &types.Truck{Name: "Taco Loco", SourceURLs: []string{"https://a.example"}})
	require.NoError(t, err)
	source, err := mem.CreateTruck(ctx, &types.Truck{
		Name:        "Taco Loco SF",
		Description: "Street tacos",
		SourceURLs:  []string{"https://b.example"},
	})
	require.NoError(t, err)

	merger := NewMerger(mem, zap.NewNop())
	merged, err := merger.MergeDuplicates(ctx, target.ID, source.ID)
	require.NoError(t, err)

	assert.Equal(t, target.ID, merged.ID)
	assert.Equal(t, "Taco Loco", merged.Name)
	assert.Equal(t, "Street tacos", merged.Description)

	stored, err := mem.GetTruck(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, stored.SourceURLs)
}

func TestMerger_MissingSourceWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	target, err := mem.CreateTruck(ctx, &types.Truck{Name: "Taco Loco"})
	require.NoError(t, err)

	merger := NewMerger(mem, zap.NewNop())
	_, err = merger.MergeDuplicates(ctx, target.ID, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)

	stored, err := mem.GetTruck(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.UpdatedAt, stored.UpdatedAt)
	assert.Nil(t, stored.LastScrapedAt)
}

func TestMerger_RejectsSelfMerge(t *testing.T) {
	id := uuid.New()
	_, err := NewMerger(store.NewMemory(), zap.NewNop()).MergeDuplicates(context.Background(), id, id)
	assert.Error(t, err)
}
