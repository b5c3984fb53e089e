package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/config"
	"github.com/jonathan/foodtruck-agent/internal/discovery"
	"github.com/jonathan/foodtruck-agent/internal/jobs"
	"github.com/jonathan/foodtruck-agent/internal/scheduler"
)

// Scheduled task names.
const (
	TaskDiscovery      = "discovery"
	TaskProcessPending = "process-pending-jobs"
	TaskRetryFailed    = "retry-failed-jobs"
)

type discoveryRunner interface {
	Run(ctx context.Context) *discovery.Result
	QueueJobs(ctx context.Context, limit int) (int, error)
}

type jobRunner interface {
	RunPending(ctx context.Context, limit int) (jobs.RunSummary, error)
	RetrySweep(ctx context.Context) (jobs.SweepSummary, error)
}

// scheduledTasks builds the periodic tasks: discovery followed by queueing
// the new URLs as jobs, a pending-job sweep, and a retry sweep.
func scheduledTasks(cfg *config.Config, engine discoveryRunner, orch jobRunner, logger *zap.Logger) []scheduler.Task {
	return []scheduler.Task{
		{
			Name:            TaskDiscovery,
			IntervalMinutes: cfg.Scheduler.DiscoveryIntervalMinutes,
			Enabled:         true,
			Execute: func(ctx context.Context) error {
				result := engine.Run(ctx)
				if result.URLsDiscovered == 0 && len(result.Errors) > 0 {
					return fmt.Errorf("discovery found nothing: %d source errors, first: %s", len(result.Errors), result.Errors[0])
				}
				queued, err := engine.QueueJobs(ctx, cfg.Discovery.QueueLimit)
				if err != nil {
					return err
				}
				logger.Info("Discovery task finished",
					zap.Int("urls_stored", result.URLsStored),
					zap.Int("urls_duplicates", result.URLsDuplicates),
					zap.Int("jobs_queued", queued))
				return nil
			},
		},
		{
			Name:            TaskProcessPending,
			IntervalMinutes: cfg.Scheduler.JobsIntervalMinutes,
			Enabled:         true,
			Execute: func(ctx context.Context) error {
				summary, err := orch.RunPending(ctx, cfg.Jobs.BatchSize)
				if err != nil {
					return err
				}
				if summary.Errors > 0 {
					return fmt.Errorf("%d of %d jobs hit store errors", summary.Errors, summary.Processed)
				}
				return nil
			},
		},
		{
			Name:            TaskRetryFailed,
			IntervalMinutes: cfg.Scheduler.RetryIntervalMinutes,
			Enabled:         true,
			Execute: func(ctx context.Context) error {
				_, err := orch.RetrySweep(ctx)
				return err
			},
		},
	}
}

// buildScheduler wires the full task set against the given components.
func (a *app) buildScheduler(engine discoveryRunner, orch jobRunner) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger)
	for _, task := range scheduledTasks(a.cfg, engine, orch, a.logger) {
		if err := sched.AddTask(task); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func newScheduleCmd(c *cli) *cobra.Command {
	var runNow []string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the periodic discovery, job and retry tasks until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			engine, err := a.discoveryEngine(ctx)
			if err != nil {
				return err
			}
			sched, err := a.buildScheduler(engine, orch)
			if err != nil {
				return err
			}

			for _, name := range runNow {
				if err := sched.RunNow(ctx, name); err != nil {
					c.logger.Warn("Immediate task run failed", zap.String("task", name), zap.Error(err))
				}
			}

			if err := sched.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&runNow, "run-now", nil, "Tasks to run once before the schedule starts")
	cmd.Flags().Int("jobs-interval", 0, "Minutes between pending-job sweeps")
	cmd.Flags().Int("discovery-interval", 0, "Minutes between discovery runs")
	c.bindFlag("scheduler.jobs_interval_minutes", cmd.Flags(), "jobs-interval")
	c.bindFlag("scheduler.discovery_interval_minutes", cmd.Flags(), "discovery-interval")
	return cmd
}
