package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/foodtruck-agent/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server exposing job submission, pipeline runs (plain and SSE), duplicate checks, discovery and scheduler status.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			runner, err := a.runner(ctx)
			if err != nil {
				return err
			}
			orch := a.orchestratorWith(runner)
			engine, err := a.discoveryEngine(ctx)
			if err != nil {
				return err
			}

			deps := server.Deps{
				Store:      a.store,
				Jobs:       orch,
				Pipeline:   runner,
				Duplicates: a.detector(),
				Discovery:  engine,
				Logger:     a.logger,
			}
			if withScheduler {
				sched, err := a.buildScheduler(engine, orch)
				if err != nil {
					return err
				}
				if err := sched.Start(ctx); err != nil {
					return err
				}
				defer sched.Stop()
				deps.Scheduler = sched
			}

			srv := server.New(server.Config{Port: a.cfg.Server.Port, RateLimit: a.cfg.RateLimitConfig()}, deps)
			return srv.Start(ctx)
		},
	}
	cmd.Flags().Int("port", 8080, "Port to listen on")
	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", true, "Run the periodic tasks inside the server process")
	c.bindFlag("server.port", cmd.Flags(), "port")
	return cmd
}
