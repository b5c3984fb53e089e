package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/fetch"
	"github.com/jonathan/foodtruck-agent/internal/store"
)

// Request is one pipeline invocation.
type Request struct {
	URL     string `json:"url,omitempty"`
	RawText string `json:"raw_text,omitempty"`
	DryRun  bool   `json:"dry_run"`
}

// Result collects every stage outcome. Stages after a failure are nil.
type Result struct {
	FetchResult   *StageResult `json:"fetch_result"`
	ExtractResult *StageResult `json:"extract_result"`
	PersistResult *StageResult `json:"persist_result"`
	Logs          []string     `json:"logs"`
	OverallStatus StageStatus  `json:"overall_status"`
}

// Failed returns the first stage that ended in Error, or nil.
func (r *Result) Failed() *StageResult {
	for _, sr := range []*StageResult{r.FetchResult, r.ExtractResult, r.PersistResult} {
		if sr != nil && sr.Status == StatusError {
			return sr
		}
	}
	return nil
}

// Persisted returns the Persist stage output, or nil if the stage did not succeed.
func (r *Result) Persisted() *PersistOutput {
	if !r.PersistResult.OK() {
		return nil
	}
	out, _ := r.PersistResult.Data.(*PersistOutput)
	return out
}

// ProgressCallback is called after each stage finishes.
type ProgressCallback func(StageResult)

// Runner chains the three stages.
type Runner struct {
	fetch   *FetchStage
	extract *ExtractStage
	persist *PersistStage
	logger  *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(crawler fetch.Crawler, extractor Extractor, detector DuplicateChecker, trucks store.TruckStore, logger *zap.Logger) *Runner {
	return &Runner{
		fetch:   NewFetchStage(crawler),
		extract: NewExtractStage(extractor),
		persist: NewPersistStage(detector, trucks, logger),
		logger:  logger,
	}
}

// Run executes Fetch, Extract and Persist in order, stopping at the first Error.
// Stage failures are reported in the Result; the returned error is only set when
// the request carries neither a URL nor raw text.
func (r *Runner) Run(ctx context.Context, req Request, onProgress ProgressCallback) (*Result, error) {
	if strings.TrimSpace(req.URL) == "" && strings.TrimSpace(req.RawText) == "" {
		return nil, ErrNoInput
	}

	result := &Result{Logs: []string{}, OverallStatus: StatusError}
	logger := r.logger.With(zap.String("url", req.URL), zap.Bool("dry_run", req.DryRun))

	record := func(sr StageResult) bool {
		line := fmt.Sprintf("%s: %s (%dms)", sr.Stage, sr.Status, sr.DurationMs)
		if sr.Error != "" {
			line += ": " + sr.Error
		}
		result.Logs = append(result.Logs, line)
		logger.Debug("Stage finished", zap.String("stage", sr.Stage), zap.String("status", string(sr.Status)), zap.Int64("duration_ms", sr.DurationMs))
		if onProgress != nil {
			onProgress(sr)
		}
		return sr.OK()
	}

	fetched := r.fetch.Run(ctx, FetchInput{URL: req.URL, RawText: req.RawText})
	result.FetchResult = &fetched
	if !record(fetched) {
		logger.Warn("Fetch stage failed", zap.String("error", fetched.Error))
		return result, nil
	}
	fetchOut := fetched.Data.(*FetchOutput)

	extracted := r.extract.Run(ctx, fetchOut.Content, fetchOut.SourceURL)
	result.ExtractResult = &extracted
	if !record(extracted) {
		logger.Warn("Extract stage failed", zap.String("error", extracted.Error))
		return result, nil
	}
	extractOut := extracted.Data.(*ExtractOutput)

	persisted := r.persist.Run(ctx, PersistInput{Data: extractOut.Data, SourceURL: extractOut.SourceURL, DryRun: req.DryRun})
	result.PersistResult = &persisted
	if !record(persisted) {
		logger.Warn("Persist stage failed", zap.String("error", persisted.Error))
		return result, nil
	}

	result.OverallStatus = StatusSuccess
	logger.Info("Pipeline completed", zap.String("persist_status", string(persisted.Status)))
	return result, nil
}
