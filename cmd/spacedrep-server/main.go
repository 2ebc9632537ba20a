package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/at-ishikawa/spacedrep/internal/bootstrap"
	"github.com/at-ishikawa/spacedrep/internal/config"
	"github.com/at-ishikawa/spacedrep/internal/logging"
	"github.com/at-ishikawa/spacedrep/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	configFile string
	debugMode  bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spacedrep-server",
		Short:         "spacedrep review service HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	return rootCmd
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}
	logger, err := logging.New(cfg.Log, debugMode)
	if err != nil {
		return fmt.Errorf("logging.New() > %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app := bootstrap.New(logger)
	stores, err := bootstrap.OpenStores(ctx, app, cfg, logger)
	if err != nil {
		_ = app.Shutdown(context.Background())
		return fmt.Errorf("bootstrap.OpenStores() > %w", err)
	}
	service, err := bootstrap.NewReviewService(cfg, stores, logger)
	if err != nil {
		_ = app.Shutdown(context.Background())
		return fmt.Errorf("bootstrap.NewReviewService() > %w", err)
	}

	srv := newHTTPServer(cfg, server.NewRouter(server.NewReviewHandler(service, logger), cfg.Server.CORS, logger))
	app.AddShutdownHook(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	return app.Run(ctx, func(ctx context.Context) error {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.Bool("tls", cfg.Server.TLS.Enabled()),
		)
		var err error
		if cfg.Server.TLS.Enabled() {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}
