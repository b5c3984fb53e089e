// Package pipeline runs the Fetch, Extract and Persist stages that turn a URL or raw text
// into a stored food truck record.
package pipeline

import (
	"fmt"
	"time"
)

// Stage names
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StagePersist = "persist"
)

// StageStatus is the tagged outcome of a stage.
type StageStatus string

// Stage statuses
const (
	StatusSuccess        StageStatus = "Success"
	StatusError          StageStatus = "Error"
	StatusSkippedRawText StageStatus = "Skipped (Raw Text Provided)"
	StatusDryRun         StageStatus = "Success (Dry Run)"
	StatusSaved          StageStatus = "Success (Saved)"
	StatusNeedsReview    StageStatus = "Success (Manual Review)"
)

// StageResult is what one stage produced.
type StageResult struct {
	Stage      string         `json:"stage"`
	Status     StageStatus    `json:"status"`
	Data       any            `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// OK reports whether the next stage may run.
func (r *StageResult) OK() bool {
	return r != nil && r.Status != StatusError
}

func errorResult(stage string, err error) StageResult {
	return StageResult{Stage: stage, Status: StatusError, Error: err.Error()}
}

// timed runs fn as stage, stamping its name and duration. A panic inside fn becomes
// an Error result.
func timed(stage string, fn func() StageResult) (result StageResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = StageResult{
				Stage:   stage,
				Status:  StatusError,
				Error:   fmt.Sprintf("%s stage panicked: %v", stage, rec),
				Details: map[string]any{"panic": fmt.Sprint(rec)},
			}
		}
		result.Stage = stage
		result.DurationMs = time.Since(start).Milliseconds()
	}()
	return fn()
}
