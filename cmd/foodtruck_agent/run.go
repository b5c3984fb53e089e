package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/foodtruck-agent/internal/observability"
	"github.com/jonathan/foodtruck-agent/internal/pipeline"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		url      string
		textPath string
		dryRun   bool
		pretty   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run Fetch, Extract and Persist once for a URL or a text file",
		Long: `Runs the pipeline directly without creating a job. With --text the Fetch stage is
skipped and the file contents are extracted as-is. --dry-run extracts and maps the
record but neither checks duplicates nor writes it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" && textPath == "" {
				return fmt.Errorf("either --url or --text must be provided")
			}
			req := pipeline.Request{URL: url, DryRun: dryRun}
			if textPath != "" {
				data, err := os.ReadFile(textPath)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", textPath, err)
				}
				req.RawText = string(data)
			}

			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			runner, err := a.runner(ctx)
			if err != nil {
				return err
			}
			result, err := runner.Run(ctx, req, func(sr pipeline.StageResult) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%dms)\n", sr.Stage, sr.Status, sr.DurationMs)
			})
			if err != nil {
				return err
			}
			if pretty {
				observability.NewPrinter(cmd.OutOrStdout()).PrintPipelineResult(result)
			} else if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if failed := result.Failed(); failed != nil {
				return fmt.Errorf("%s stage failed: %s", failed.Stage, failed.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&url, "url", "u", "", "Page to scrape")
	cmd.Flags().StringVarP(&textPath, "text", "t", "", "Path to a text file to extract instead of fetching")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not check duplicates or write the record")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Print a human-readable summary instead of JSON")
	cmd.Flags().Bool("use-browser", false, "Render JS-heavy pages in headless Chrome")
	c.bindFlag("fetch.use_browser", cmd.Flags(), "use-browser")
	return cmd
}
