// Package main implements the entry point for the lockn progress server,
// which tracks mastery, daily streaks and stack comprehension checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AtlasTheChosen/lockn-sub001/internal/config"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	migrateCmd := flag.String("migrate", "", "run a migration command (up|down|status|version|reset) and exit")
	flag.Parse()

	if err := run(*configPath, *migrateCmd); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run loads configuration, then either executes a migration command or
// serves HTTP until SIGINT/SIGTERM.
func run(configPath, migrateCmd string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Int("daily_requirement", cfg.Streak.DailyRequirement),
		slog.Int("max_outstanding_checks", cfg.Checks.MaxOutstanding))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("error closing database connection", slog.String("error", err.Error()))
			}
		}()
		return postgres.Migrate(ctx, db, migrateCmd, log)
	}

	app := newApplication(cfg, log, db)
	return app.Run(ctx)
}

// loadAppConfig loads the application configuration from the environment
// and the optional config file.
func loadAppConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
