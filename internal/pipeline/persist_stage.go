package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/dedup"
	"github.com/jonathan/foodtruck-agent/internal/mapping"
	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// DuplicateChecker classifies a candidate against stored trucks.
type DuplicateChecker interface {
	CheckForDuplicates(ctx context.Context, candidate *types.CandidateRecord) (*dedup.Result, error)
}

// PersistInput is the Persist stage input.
type PersistInput struct {
	Data      map[string]any
	SourceURL string
	DryRun    bool
}

// PersistOutput describes what the Persist stage did.
type PersistOutput struct {
	TruckID *uuid.UUID   `json:"truck_id,omitempty"`
	Action  dedup.Action `json:"action,omitempty"`
	Reason  string       `json:"reason,omitempty"`
	Payload types.Truck  `json:"payload"`
}

// PersistStage maps extracted data to a truck and writes it according to the
// duplicate check.
type PersistStage struct {
	detector DuplicateChecker
	trucks   store.TruckStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewPersistStage creates a PersistStage.
func NewPersistStage(detector DuplicateChecker, trucks store.TruckStore, logger *zap.Logger) *PersistStage {
	return &PersistStage{detector: detector, trucks: trucks, now: time.Now, logger: logger}
}

// Run executes the stage. Data is a *PersistOutput on success. A dry run touches
// neither the detector nor the store.
func (s *PersistStage) Run(ctx context.Context, in PersistInput) StageResult {
	return timed(StagePersist, func() StageResult {
		now := s.now().UTC()
		candidate := mapping.ParseExtraction(in.Data, in.SourceURL)
		payload := mapping.ToTruck(candidate, now)

		if in.DryRun {
			return StageResult{Status: StatusDryRun, Data: &PersistOutput{Payload: payload}}
		}

		check, err := s.detector.CheckForDuplicates(ctx, &candidate)
		if err != nil {
			return errorResult(StagePersist, fmt.Errorf("duplicate check failed: %w", err))
		}

		out := &PersistOutput{Action: check.Action, Reason: check.Reason, Payload: payload}
		details := map[string]any{"action": string(check.Action), "matches": len(check.Matches)}
		if check.BestMatch != nil {
			details["similarity"] = check.BestMatch.Similarity
		}

		saved, err := s.write(ctx, check, payload, now)
		if err != nil {
			return StageResult{Stage: StagePersist, Status: StatusError, Error: err.Error(), Data: out, Details: details}
		}
		if saved == nil {
			s.logger.Info("Candidate needs manual review",
				zap.String("name", candidate.Name),
				zap.String("url", in.SourceURL),
				zap.String("reason", check.Reason))
			return StageResult{Status: StatusNeedsReview, Data: out, Details: details}
		}

		out.TruckID = &saved.ID
		out.Payload = *saved
		details["truck_id"] = saved.ID.String()
		return StageResult{Status: StatusSaved, Data: out, Details: details}
	})
}

// write applies the detector's action. It returns nil, nil for manual review.
func (s *PersistStage) write(ctx context.Context, check *dedup.Result, payload types.Truck, now time.Time) (*types.Truck, error) {
	switch check.Action {
	case dedup.ActionCreate:
		created, err := s.trucks.CreateTruck(ctx, &payload)
		if err != nil {
			return nil, fmt.Errorf("failed to create truck: %w", err)
		}
		return created, nil

	case dedup.ActionMerge, dedup.ActionUpdate:
		if check.BestMatch == nil {
			return nil, errors.New("duplicate check chose an update without a best match")
		}
		existing := check.BestMatch.Truck
		var next types.Truck
		if check.Action == dedup.ActionMerge {
			next = dedup.MergeTrucks(existing, payload, now)
		} else {
			next = dedup.RefreshTruck(existing, payload, now)
		}
		updated, err := s.trucks.UpdateTruck(ctx, existing.ID, &next)
		if err != nil {
			return nil, fmt.Errorf("failed to update truck %s: %w", existing.ID, err)
		}
		return updated, nil

	case dedup.ActionManualReview:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown duplicate action %q", check.Action)
	}
}
