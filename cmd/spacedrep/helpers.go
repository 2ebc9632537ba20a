package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/at-ishikawa/spacedrep/internal/bootstrap"
	"github.com/at-ishikawa/spacedrep/internal/client"
	"github.com/at-ishikawa/spacedrep/internal/config"
	"github.com/at-ishikawa/spacedrep/internal/logging"
	"github.com/at-ishikawa/spacedrep/internal/review"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
	"github.com/at-ishikawa/spacedrep/internal/server"
)

// environment is what a command needs to run. stores and service are nil
// in remote mode.
type environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	app      *bootstrap.App
	stores   *bootstrap.Stores
	service  *review.Service
	reviewer server.Reviewer
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

// runApp loads the configuration and runs fn inside the application lifecycle.
func runApp(cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log, debugMode)
	if err != nil {
		return fmt.Errorf("logging.New() > %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app := bootstrap.New(logger)
	return app.Run(cmd.Context(), func(ctx context.Context) error {
		return fn(ctx, &environment{cfg: cfg, logger: logger, app: app})
	})
}

// runWithReviewer runs fn with either the local service or, with --remote,
// a client of a remote server.
func runWithReviewer(cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	return runApp(cmd, func(ctx context.Context, env *environment) error {
		if remoteURL != "" {
			c := client.New(remoteURL)
			env.app.AddShutdownHook(func(context.Context) error {
				return c.Close()
			})
			env.reviewer = c
			return fn(ctx, env)
		}
		return withLocalService(ctx, env, fn)
	})
}

// runLocal runs fn with the local service. It rejects --remote.
func runLocal(cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	if remoteURL != "" {
		return fmt.Errorf("%s does not support --remote", cmd.CommandPath())
	}
	return runApp(cmd, func(ctx context.Context, env *environment) error {
		return withLocalService(ctx, env, fn)
	})
}

func withLocalService(ctx context.Context, env *environment, fn func(ctx context.Context, env *environment) error) error {
	stores, err := bootstrap.OpenStores(ctx, env.app, env.cfg, env.logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	service, err := bootstrap.NewReviewService(env.cfg, stores, env.logger)
	if err != nil {
		return fmt.Errorf("create review service: %w", err)
	}
	env.stores = stores
	env.service = service
	env.reviewer = service
	return fn(ctx, env)
}

// parseTime accepts RFC 3339 timestamps and plain dates, read as UTC midnight.
// An empty value yields the zero time.
func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, use YYYY-MM-DD or RFC 3339", value)
	}
	return t, nil
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func printRecord(w io.Writer, record *schedule.Record) {
	_, _ = fmt.Fprintf(w, "%s: status %s, %d%% complete, %d reviews, interval %d days, EF %.2f, due %s\n",
		record.Key(),
		record.Status,
		record.PercentageCompletion,
		record.ReviewCount,
		record.IntervalDays,
		record.EasinessFactor,
		formatDue(record.DueAt),
	)
}
