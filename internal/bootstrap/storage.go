package bootstrap

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/at-ishikawa/spacedrep/internal/config"
	"github.com/at-ishikawa/spacedrep/internal/database"
	"github.com/at-ishikawa/spacedrep/internal/lock"
	"github.com/at-ishikawa/spacedrep/internal/logging"
	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/review"
	"github.com/at-ishikawa/spacedrep/schemas"
)

// Stores holds the repositories and the per-item locker selected by the
// configuration.
type Stores struct {
	Records progress.Repository
	Logs    progress.LogRepository
	Locker  lock.Locker
}

// OpenStores opens the configured storage driver and locker. Connections are
// closed by shutdown hooks registered on app.
func OpenStores(ctx context.Context, app *App, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	logger = logging.OrNop(logger)
	var stores Stores

	switch cfg.Storage.Driver {
	case config.StorageDriverMySQL:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database.Open() > %w", err)
		}
		app.AddShutdownHook(func(context.Context) error {
			return db.Close()
		})
		stores.Records = progress.NewDBRepository(db)
		stores.Logs = progress.NewDBLogRepository(db)
	case config.StorageDriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("database.OpenPostgres() > %w", err)
		}
		app.AddShutdownHook(func(context.Context) error {
			pool.Close()
			return nil
		})
		stores.Records = progress.NewPostgresRepository(pool)
		stores.Logs = progress.NewPostgresLogRepository(pool)
	case config.StorageDriverYAML:
		stores.Records = progress.NewYAMLRepository(cfg.Storage.Directory)
		stores.Logs = progress.NewYAMLLogRepository(filepath.Join(cfg.Storage.Directory, "logs"))
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Redis.URL == "" {
		stores.Locker = lock.NewKeyedMutex()
	} else {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("lock.NewRedisClient() > %w", err)
		}
		app.AddShutdownHook(func(context.Context) error {
			return rdb.Close()
		})
		stores.Locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, cfg.Redis.LockWait, logger)
	}

	logger.Debug("storage opened",
		zap.String("driver", cfg.Storage.Driver),
		zap.Bool("distributed_lock", cfg.Redis.URL != ""))
	return &stores, nil
}

// NewReviewService builds the review service on top of stores.
func NewReviewService(cfg *config.Config, stores *Stores, logger *zap.Logger) (*review.Service, error) {
	return review.NewService(stores.Records, stores.Logs, stores.Locker,
		review.WithMaxRetries(cfg.Review.MaxRetries),
		review.WithLogger(logger),
	)
}

// Migrate applies the embedded migrations of the configured SQL driver.
// The YAML driver has no schema and is left untouched.
func Migrate(ctx context.Context, app *App, cfg *config.Config, out io.Writer) error {
	var exec func(ctx context.Context, sql string) error

	switch cfg.Storage.Driver {
	case config.StorageDriverYAML:
		_, _ = fmt.Fprintln(out, "yaml storage has no schema to migrate")
		return nil
	case config.StorageDriverMySQL:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("database.Open() > %w", err)
		}
		app.AddShutdownHook(func(context.Context) error {
			return db.Close()
		})
		exec = func(ctx context.Context, sql string) error {
			_, err := db.ExecContext(ctx, sql)
			return err
		}
	case config.StorageDriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("database.OpenPostgres() > %w", err)
		}
		app.AddShutdownHook(func(context.Context) error {
			pool.Close()
			return nil
		})
		exec = func(ctx context.Context, sql string) error {
			_, err := pool.Exec(ctx, sql)
			return err
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	migrations, err := schemas.ForDriver(cfg.Storage.Driver)
	if err != nil {
		return fmt.Errorf("schemas.ForDriver(%s) > %w", cfg.Storage.Driver, err)
	}
	for _, m := range migrations {
		if err := exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		_, _ = fmt.Fprintf(out, "  [APPLIED]  %s\n", m.Name)
	}
	return nil
}
