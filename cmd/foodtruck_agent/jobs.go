package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/foodtruck-agent/internal/types"
)

func newSubmitJobCmd(c *cli) *cobra.Command {
	var req types.CreateJobRequest
	var jobType string

	cmd := &cobra.Command{
		Use:   "submit-job",
		Short: "Queue a scraping job for a URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req.JobType = types.JobType(jobType)
			// Submission never runs the pipeline.
			job, err := a.orchestratorWith(nil).SubmitJob(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
	cmd.Flags().StringVarP(&req.TargetURL, "url", "u", "", "Target URL")
	cmd.Flags().IntVarP(&req.Priority, "priority", "p", 0, "Priority (0-100, higher runs first)")
	cmd.Flags().IntVar(&req.MaxRetries, "max-retries", 0, "Retry limit (defaults to jobs.max_retries)")
	cmd.Flags().StringVar(&jobType, "type", string(types.JobTypeManual), "Job type: website-auto | manual | discovery-followup")
	return cmd
}

func newProcessJobCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "process-job <job-id>",
		Short: "Claim a pending job and run it to its final status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}

			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			job, err := orch.ProcessJob(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
}

func newProcessPendingCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process-pending",
		Short: "Process pending jobs by priority with the configured worker pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			summary, err := orch.RunPending(ctx, a.cfg.Jobs.BatchSize)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().Int("workers", 0, "Concurrent jobs")
	cmd.Flags().Int("limit", 0, "Maximum jobs to process")
	c.bindFlag("jobs.workers", cmd.Flags(), "workers")
	c.bindFlag("jobs.batch_size", cmd.Flags(), "limit")
	return cmd
}

func newRetrySweepCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "retry-sweep",
		Short: "Re-queue failed jobs that are under their retry limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.orchestratorWith(nil).RetrySweep(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}
