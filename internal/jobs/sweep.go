package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// RunSummary counts the outcomes of a pending-job sweep.
type RunSummary struct {
	Processed         int `json:"processed"`
	CompletedWithData int `json:"completed_with_data"`
	Completed         int `json:"completed"`
	Failed            int `json:"failed"`
	Requeued          int `json:"requeued"`
	Skipped           int `json:"skipped"`
	Errors            int `json:"errors"`
}

func (s *RunSummary) add(job *types.Job) {
	s.Processed++
	switch job.Status {
	case types.JobStatusCompletedWithData:
		s.CompletedWithData++
	case types.JobStatusCompleted:
		s.Completed++
	case types.JobStatusFailed:
		s.Failed++
	case types.JobStatusPending:
		s.Requeued++
	}
}

// RunPending processes up to limit pending jobs, highest priority first, on a bounded
// worker pool. A job claimed by another worker in the meantime is skipped.
func (o *Orchestrator) RunPending(ctx context.Context, limit int) (RunSummary, error) {
	pending, err := o.jobs.ListJobsByStatus(ctx, types.JobStatusPending, limit)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	var (
		mu      sync.Mutex
		summary RunSummary
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, job := range pending {
		id := job.ID
		g.Go(func() error {
			processed, err := o.ProcessJob(gCtx, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, store.ErrJobNotClaimable):
				summary.Skipped++
			case err != nil:
				summary.Errors++
				o.logger.Error("Job processing error", zap.String("job_id", id.String()), zap.Error(err))
			default:
				summary.add(processed)
			}
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Info("Pending job sweep finished",
		zap.Int("listed", len(pending)),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// SweepSummary counts the outcomes of a retry sweep.
type SweepSummary struct {
	Requeued  int `json:"requeued"`
	Exhausted int `json:"exhausted"`
}

// RetrySweep applies the retry path to every failed job.
func (o *Orchestrator) RetrySweep(ctx context.Context) (SweepSummary, error) {
	failed, err := o.jobs.ListJobsByStatus(ctx, types.JobStatusFailed, 0)
	if err != nil {
		return SweepSummary{}, fmt.Errorf("failed to list failed jobs: %w", err)
	}

	var summary SweepSummary
	for _, job := range failed {
		logger := o.logger.With(zap.String("job_id", job.ID.String()), zap.String("url", job.TargetURL))
		outcome, err := o.retry(ctx, logger, job.ID)
		if err != nil {
			return summary, err
		}
		if outcome.Requeued {
			summary.Requeued++
		} else {
			summary.Exhausted++
		}
	}
	return summary, nil
}
