package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/spacedrep/internal/report"
)

func newStatsCommand() *cobra.Command {
	var asOf string
	var save bool
	var generatePDF bool
	var outputDirectory string
	var templatePath string

	cmd := &cobra.Command{
		Use:   "stats <learner id>",
		Short: "Show a learner's statistics as a markdown report",
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
				stats, err := env.reviewer.Stats(ctx, args[0], at)
				if err != nil {
					return fmt.Errorf("load statistics: %w", err)
				}
				due, err := env.reviewer.DueItems(ctx, args[0], at)
				if err != nil {
					return fmt.Errorf("list due items: %w", err)
				}
				data := report.Data{
					LearnerID:   args[0],
					GeneratedAt: at,
					Summary:     stats.Summary,
					Activity:    stats.Activity,
					Due:         due,
				}

				if !save && !generatePDF {
					return report.WriteMarkdown(cmd.OutOrStdout(), templatePath, data)
				}

				directory := outputDirectory
				if directory == "" {
					directory = env.cfg.Reports.Directory
				}
				paths, err := report.NewWriter(directory, templatePath).Write(data, generatePDF)
				if err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				for _, path := range paths {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference time (YYYY-MM-DD or RFC 3339). Defaults to now")
	cmd.Flags().BoolVar(&save, "save", false, "Write the report into the output directory instead of stdout")
	cmd.Flags().BoolVar(&generatePDF, "pdf", false, "Also write a PDF of the report. Implies --save")
	cmd.Flags().StringVarP(&outputDirectory, "output", "o", "", "Output directory. Defaults to reports.directory")
	cmd.Flags().StringVar(&templatePath, "template", "", "Custom report template path")
	return cmd
}
