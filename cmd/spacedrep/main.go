package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	debugMode  bool
	remoteURL  string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
	os.Exit(0)
}

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "spacedrep",
		Short:         "Schedule reviews with the SM-2 spaced repetition algorithm",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Secrets such as DB_PASSWORD may live in a local .env file.
			_ = godotenv.Load()
			return nil
		},
	}
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug mode")
	flags.StringVar(&remoteURL, "remote", "", "Base URL of a spacedrep-server to send requests to instead of the local storage")

	rootCommand.AddCommand(
		newReviewCommand(),
		newProgressCommand(),
		newDueCommand(),
		newStatsCommand(),
		newReplayCommand(),
		newSyncCommand(),
		newMigrateCommand(),
	)
	return rootCommand
}
