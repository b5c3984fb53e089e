package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/similarity"
	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// Per-field thresholds for listing a field in MatchedFields. They are stricter
// than what it takes for a field to move the overall score.
const (
	NameMatchMin     = 0.85
	LocationMatchMin = 0.9
	ContactMatchMin  = 1.0
	menuMatchAbove   = 0.7
)

// Matched field names
const (
	FieldName     = "name"
	FieldLocation = "location"
	FieldContact  = "contact"
	FieldMenu     = "menu"
)

// DefaultPageSize is how many trucks are read per store call during a check.
const DefaultPageSize = 500

// NoDuplicatesReason is the reason given when nothing matched.
const NoDuplicatesReason = "No duplicates found; safe to create a new record."

// Match is one stored truck that resembles the candidate.
type Match struct {
	Truck          types.Truck            `json:"truck"`
	Similarity     float64                `json:"similarity"`
	Scores         similarity.FieldScores `json:"scores"`
	MatchedFields  []string               `json:"matched_fields"`
	Confidence     Confidence             `json:"confidence"`
	Recommendation Recommendation         `json:"recommendation"`
}

// Result is the outcome of a duplicate check.
type Result struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Matches     []Match `json:"matches"`
	BestMatch   *Match  `json:"best_match,omitempty"`
	Action      Action  `json:"action"`
	Reason      string  `json:"reason"`
}

// Classify compares a candidate with every existing truck. It is pure.
func Classify(candidate *types.CandidateRecord, existing []types.Truck) *Result {
	matches := []Match{}
	for i := range existing {
		scores := similarity.Compare(candidate, &existing[i])
		overall := scores.Overall()
		if overall < DuplicateThreshold {
			continue
		}
		matches = append(matches, Match{
			Truck:          existing[i],
			Similarity:     overall,
			Scores:         scores,
			MatchedFields:  matchedFields(scores),
			Confidence:     ConfidenceFor(overall),
			Recommendation: RecommendationFor(overall),
		})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Similarity > matches[b].Similarity
	})

	result := &Result{Matches: matches, Action: ActionCreate, Reason: NoDuplicatesReason}
	if len(matches) == 0 {
		return result
	}

	best := matches[0]
	result.IsDuplicate = true
	result.BestMatch = &best
	result.Action = DecideAction(best.Confidence, best.Recommendation)
	result.Reason = reason(len(matches), best)
	return result
}

func matchedFields(s similarity.FieldScores) []string {
	fields := []string{}
	if s.Name >= NameMatchMin {
		fields = append(fields, FieldName)
	}
	if s.Location >= LocationMatchMin {
		fields = append(fields, FieldLocation)
	}
	if s.Contact >= ContactMatchMin {
		fields = append(fields, FieldContact)
	}
	if s.Menu > menuMatchAbove {
		fields = append(fields, FieldMenu)
	}
	return fields
}

func reason(count int, best Match) string {
	fields := "none"
	if len(best.MatchedFields) > 0 {
		fields = strings.Join(best.MatchedFields, ", ")
	}
	return fmt.Sprintf("Found %d potential duplicate(s). Best match is %.0f%% similar to %q (matched fields: %s).",
		count, best.Similarity*100, best.Truck.Name, fields)
}

// Detector runs duplicate checks against the store.
type Detector struct {
	trucks   store.TruckStore
	pageSize int
	logger   *zap.Logger
}

// NewDetector creates a detector. pageSize <= 0 uses DefaultPageSize.
func NewDetector(trucks store.TruckStore, pageSize int, logger *zap.Logger) *Detector {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Detector{trucks: trucks, pageSize: pageSize, logger: logger}
}

// CheckForDuplicates classifies candidate against every stored truck.
func (d *Detector) CheckForDuplicates(ctx context.Context, candidate *types.CandidateRecord) (*Result, error) {
	existing, err := d.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	result := Classify(candidate, existing)
	d.logger.Debug("Duplicate check finished",
		zap.String("candidate", candidate.Name),
		zap.Int("compared", len(existing)),
		zap.Int("matches", len(result.Matches)),
		zap.String("action", string(result.Action)))
	return result, nil
}

func (d *Detector) loadAll(ctx context.Context) ([]types.Truck, error) {
	var all []types.Truck
	for offset := 0; ; offset += d.pageSize {
		page, total, err := d.trucks.ListTrucks(ctx, d.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list trucks: %w", err)
		}
		all = append(all, page...)
		if len(page) == 0 || offset+len(page) >= total {
			return all, nil
		}
	}
}
