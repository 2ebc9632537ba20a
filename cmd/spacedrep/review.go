package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/spacedrep/internal/review"
)

func newReviewCommand() *cobra.Command {
	var minutes int
	var at string

	cmd := &cobra.Command{
		Use:   "review <learner id> <item id> <quality>",
		Short: "Record a review graded from 0 (blackout) to 5 (perfect recall)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			quality, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("quality must be an integer between 0 and 5: %q", args[2])
			}
			occurredAt, err := parseTime(at)
			if err != nil {
				return err
			}

			sub := review.Submission{
				LearnerID:  args[0],
				ItemID:     args[1],
				Quality:    quality,
				OccurredAt: occurredAt,
			}
			if cmd.Flags().Changed("minutes") {
				sub.StudyMinutes = &minutes
			}

			return runWithReviewer(cmd, func(ctx context.Context, env *environment) error {
				record, err := env.reviewer.SubmitReview(ctx, sub)
				if err != nil {
					return fmt.Errorf("submit review: %w", err)
				}
				printRecord(cmd.OutOrStdout(), record)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Minutes studied in this session")
	cmd.Flags().StringVar(&at, "at", "", "Time of the review (YYYY-MM-DD or RFC 3339). Defaults to now")
	return cmd
}

func newProgressCommand() *cobra.Command {
	var status string
	var percentage int
	var minutes int
	var at string

	cmd := &cobra.Command{
		Use:   "progress <learner id> <item id>",
		Short: "Update the status, completion or study time of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			occurredAt, err := parseTime(at)
			if err != nil {
				return err
			}

			sub := review.ProgressSubmission{
				LearnerID:  args[0],
				ItemID:     args[1],
				OccurredAt: occurredAt,
			}
			flags := cmd.Flags()
			if flags.Changed("status") {
				sub.Status = &status
			}
			if flags.Changed("percentage") {
				sub.Percentage = &percentage
			}
			if flags.Changed("minutes") {
				sub.StudyMinutes = &minutes
			}
			if sub.Status == nil && sub.Percentage == nil && sub.StudyMinutes == nil {
				return fmt.Errorf("at least one of --status, --percentage or --minutes is required")
			}

			return runWithReviewer(cmd, func(ctx context.Context, env *environment) error {
				record, err := env.reviewer.UpdateProgress(ctx, sub)
				if err != nil {
					return fmt.Errorf("update progress: %w", err)
				}
				printRecord(cmd.OutOrStdout(), record)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "New status: not_started, in_progress or completed")
	cmd.Flags().IntVar(&percentage, "percentage", 0, "Completion percentage from 0 to 100")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Minutes studied to add to the total")
	cmd.Flags().StringVar(&at, "at", "", "Time of the update (YYYY-MM-DD or RFC 3339). Defaults to now")
	return cmd
}
