package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/foodtruck-agent/internal/dedup"
	"github.com/jonathan/foodtruck-agent/internal/observability"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

func newCheckDuplicatesCmd(c *cli) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "check-duplicates <candidate.json>",
		Short: "Classify a candidate record against stored trucks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var candidate types.CandidateRecord
			if err := json.Unmarshal(data, &candidate); err != nil {
				return fmt.Errorf("failed to parse candidate JSON: %w", err)
			}
			if strings.TrimSpace(candidate.Name) == "" {
				return fmt.Errorf("candidate name is required")
			}

			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.detector().CheckForDuplicates(ctx, &candidate)
			if err != nil {
				return err
			}
			if pretty {
				observability.NewPrinter(cmd.OutOrStdout()).PrintDuplicateResult(result)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Print a human-readable summary instead of JSON")
	return cmd
}

func newMergeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <target-id> <source-id>",
		Short: "Merge the source truck's data into the target truck",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid target id: %w", err)
			}
			sourceID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid source id: %w", err)
			}

			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			merged, err := dedup.NewMerger(a.store, a.logger).MergeDuplicates(ctx, targetID, sourceID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), merged)
		},
	}
}
