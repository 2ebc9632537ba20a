package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/spacedrep/internal/bootstrap"
	"github.com/at-ishikawa/spacedrep/internal/datasync"
)

func newSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Export and import schedule data",
	}
	syncCmd.AddCommand(newSyncExportCommand(), newSyncImportCommand())
	return syncCmd
}

func newSyncExportCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export schedule records and review logs to YAML files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd, func(ctx context.Context, env *environment) error {
				data, err := datasync.NewExporter(env.stores.Records, env.stores.Logs).Export(ctx)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				if err := datasync.NewYAMLRecordSink(outputDir).WriteAll(data); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records and %d review logs to %s\n",
					len(data.Records), len(data.ReviewLogs), outputDir)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "./export", "Output directory for YAML files")
	return cmd
}

func newSyncImportCommand() *cobra.Command {
	var inputDir string
	var dryRun bool
	var updateExisting bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import exported YAML files into the configured storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd, func(ctx context.Context, env *environment) error {
				data, err := datasync.ReadYAMLExport(inputDir)
				if err != nil {
					return fmt.Errorf("read export: %w", err)
				}

				out := cmd.OutOrStdout()
				importer := datasync.NewImporter(env.stores.Records, env.stores.Logs, out)
				opts := datasync.ImportOptions{
					DryRun:         dryRun,
					UpdateExisting: updateExisting,
				}

				recordResult, err := importer.ImportRecords(ctx, data.Records, opts)
				if err != nil {
					return fmt.Errorf("import records: %w", err)
				}
				logResult, err := importer.ImportReviewLogs(ctx, datasync.NewLogSource(data.ReviewLogs), datasync.Keys(data.Records), opts)
				if err != nil {
					return fmt.Errorf("import review logs: %w", err)
				}

				_, _ = fmt.Fprintln(out, "\nImport Summary:")
				if opts.DryRun {
					_, _ = fmt.Fprintln(out, "  (dry-run mode, no changes made)")
				}
				_, _ = fmt.Fprintf(out, "  Schedule records:   %d new, %d skipped, %d updated, %d invalid\n",
					recordResult.RecordsNew, recordResult.RecordsSkipped, recordResult.RecordsUpdated, recordResult.RecordsInvalid)
				_, _ = fmt.Fprintf(out, "  Review logs:        %d new, %d skipped\n", logResult.ReviewLogNew, logResult.ReviewLogSkipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&inputDir, "input", "i", "./export", "Directory containing exported YAML files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without modifying the storage")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "Update existing records with imported data")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL schema of the configured storage driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remoteURL != "" {
				return fmt.Errorf("%s does not support --remote", cmd.CommandPath())
			}
			return runApp(cmd, func(ctx context.Context, env *environment) error {
				return bootstrap.Migrate(ctx, env.app, env.cfg, cmd.OutOrStdout())
			})
		},
	}
}
