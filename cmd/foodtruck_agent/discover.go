package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/foodtruck-agent/internal/observability"
)

func newDiscoverCmd(c *cli) *cobra.Command {
	var queue, pretty bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Search the web and directories for new food truck URLs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.discoveryEngine(ctx)
			if err != nil {
				return err
			}
			result := engine.Run(ctx)
			if pretty {
				observability.NewPrinter(cmd.ErrOrStderr()).PrintDiscoveryResult(result)
			}

			out := map[string]any{"discovery": result}
			if queue {
				queued, err := engine.QueueJobs(ctx, a.cfg.Discovery.QueueLimit)
				if err != nil {
					return err
				}
				out["jobs_queued"] = queued
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&queue, "queue", false, "Create discovery-followup jobs for new URLs")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Also print a human-readable summary to stderr")
	cmd.Flags().StringSlice("terms", nil, "Search terms (replaces discovery.search_terms)")
	cmd.Flags().StringSlice("cities", nil, "Cities for location searches (replaces discovery.cities)")
	cmd.Flags().String("region", "", "Region appended to bare city names")
	c.bindFlag("discovery.search_terms", cmd.Flags(), "terms")
	c.bindFlag("discovery.cities", cmd.Flags(), "cities")
	c.bindFlag("discovery.default_region", cmd.Flags(), "region")
	return cmd
}
