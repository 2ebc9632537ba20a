package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <learner id> <item id>",
		Short: "Rebuild a record from its review log and compare it with the stored record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd, func(ctx context.Context, env *environment) error {
				replayed, err := env.service.Replay(ctx, args[0], args[1])
				if err != nil {
					return fmt.Errorf("replay: %w", err)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprint(out, "replayed: ")
				printRecord(out, replayed)

				stored, err := env.stores.Records.Get(ctx, args[0], args[1])
				if errors.Is(err, progress.ErrNotFound) {
					_, _ = fmt.Fprintln(out, "stored:   (none)")
					return nil
				}
				if err != nil {
					return fmt.Errorf("load stored record: %w", err)
				}
				_, _ = fmt.Fprint(out, "stored:   ")
				printRecord(out, stored)

				if diffs := scheduleDiff(replayed, stored); len(diffs) > 0 {
					for _, d := range diffs {
						_, _ = fmt.Fprintf(out, "  [DIFF]  %s\n", d)
					}
					return fmt.Errorf("replayed record differs from the stored record in %d fields", len(diffs))
				}
				_, _ = fmt.Fprintln(out, "The review log matches the stored record.")
				return nil
			})
		},
	}
}

// scheduleDiff lists the scheduling fields that differ between a and b.
func scheduleDiff(a, b *schedule.Record) []string {
	var diffs []string
	if a.ReviewCount != b.ReviewCount {
		diffs = append(diffs, fmt.Sprintf("review_count: %d != %d", a.ReviewCount, b.ReviewCount))
	}
	if a.IntervalDays != b.IntervalDays {
		diffs = append(diffs, fmt.Sprintf("interval_days: %d != %d", a.IntervalDays, b.IntervalDays))
	}
	if a.EasinessFactor != b.EasinessFactor {
		diffs = append(diffs, fmt.Sprintf("easiness_factor: %v != %v", a.EasinessFactor, b.EasinessFactor))
	}
	if a.LastQuality != b.LastQuality {
		diffs = append(diffs, fmt.Sprintf("last_quality: %d != %d", a.LastQuality, b.LastQuality))
	}
	if formatDue(a.DueAt) != formatDue(b.DueAt) {
		diffs = append(diffs, fmt.Sprintf("due_at: %s != %s", formatDue(a.DueAt), formatDue(b.DueAt)))
	}
	if a.TimeStudiedTotal != b.TimeStudiedTotal {
		diffs = append(diffs, fmt.Sprintf("time_studied_total: %d != %d", a.TimeStudiedTotal, b.TimeStudiedTotal))
	}
	return diffs
}
