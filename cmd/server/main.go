package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anitrack-api/internal/cache"
	"anitrack-api/internal/config"
	"anitrack-api/internal/database"
	"anitrack-api/internal/logging"
	"anitrack-api/internal/realtime"
	"anitrack-api/internal/routes"
	"anitrack-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	envFile   string
	addr      string
	dbPath    string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "anitrack-api",
	Short: "AniTrack document API with a read-through TTL cache",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		// Flags win over the environment.
		if cmd.Flags().Changed("addr") {
			cfg.Addr = addr
		}
		if cmd.Flags().Changed("db") {
			cfg.DatabasePath = dbPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ANITRACK_ADDR)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides ANITRACK_DB_PATH)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "trace, debug, info, warn or error (overrides ANITRACK_LOG_LEVEL)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "console or json (overrides ANITRACK_LOG_FORMAT)")
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	appLog := logging.WithScope(logger, "app")
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Init database
	db, err := database.Open(cfg.DatabasePath, logger.GetLevel())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	hub := realtime.NewHub(logging.WithScope(logger, "events"))
	c := cache.New[any](cache.Config{
		DefaultTTL:    cfg.Cache.DefaultTTL,
		MaxSize:       cfg.Cache.MaxSize,
		SweepInterval: cfg.Cache.SweepInterval,
		SingleFlight:  cfg.Cache.SingleFlight,
		Logger:        logging.NewCacheSink(logging.WithScope(logger, "cache")),
		OnEvent:       hub.PublishCacheEvent,
	})
	defer func() {
		if err := c.Close(); err != nil {
			appLog.Error().Err(err).Msg("cache close")
		}
	}()

	// Setup the routes
	router := routes.SetupRoutes(routes.Dependencies{
		Store:      store.New(db),
		Cache:      c,
		Hub:        hub,
		Logger:     logger,
		CORSOrigin: cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info().
			Str("addr", cfg.Addr).
			Str("db", cfg.DatabasePath).
			Dur("cache_ttl", cfg.Cache.DefaultTTL).
			Int("cache_max_size", cfg.Cache.MaxSize).
			Dur("cache_sweep_interval", cfg.Cache.SweepInterval).
			Bool("cache_single_flight", cfg.Cache.SingleFlight).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
		appLog.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	appLog.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
