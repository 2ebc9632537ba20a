package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

type SortFlag string

// Set implements pflag.Value.
func (s *SortFlag) Set(v string) error {
	switch v {
	case string(SortDescending):
		*s = SortDescending
	case string(SortAscending):
		*s = SortAscending
	default:
		return fmt.Errorf("invalid value %q, valid values are %q or %q", v, SortDescending, SortAscending)
	}
	return nil
}

// String implements pflag.Value.
func (s *SortFlag) String() string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// Type implements pflag.Value.
func (s *SortFlag) Type() string {
	return "SortFlag"
}

var (
	_ pflag.Value = (*SortFlag)(nil)
)

const (
	SortDescending SortFlag = "desc"
	SortAscending  SortFlag = "asc"
)

func newDueCommand() *cobra.Command {
	sortFlag := SortAscending
	var asOf string

	cmd := &cobra.Command{
		Use:   "due <learner id>",
		Short: "List the items due for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseTime(asOf)
			if err != nil {
				return err
			}
			if at.IsZero() {
				at = time.Now()
			}

			return runWithReviewer(cmd, func(ctx context.Context, env *environment) error {
				items, err := env.reviewer.DueItems(ctx, args[0], at)
				if err != nil {
					return fmt.Errorf("list due items: %w", err)
				}
				if sortFlag == SortDescending {
					slices.Reverse(items)
				}
				printDueItems(cmd.OutOrStdout(), items, at)
				return nil
			})
		},
	}
	cmd.Flags().Var(&sortFlag, "sort", "Sort order by due date. Options: asc, desc")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference time (YYYY-MM-DD or RFC 3339). Defaults to now")
	return cmd
}

func printDueItems(w io.Writer, items []schedule.Record, asOf time.Time) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "No items are due.")
		return
	}

	overdue := color.New(color.FgRed)
	today := color.New(color.FgYellow)
	for _, item := range items {
		days := 0
		if item.DueAt != nil {
			days = int(asOf.Sub(*item.DueAt).Hours() / 24)
		}
		line := fmt.Sprintf("  %-30s due %s  interval %3d days  EF %.2f", item.ItemID, formatDue(item.DueAt), item.IntervalDays, item.EasinessFactor)
		if days >= 1 {
			_, _ = overdue.Fprintf(w, "%s  (%d days overdue)\n", line, days)
			continue
		}
		_, _ = today.Fprintln(w, line)
	}
	_, _ = fmt.Fprintf(w, "%d items due\n", len(items))
}
