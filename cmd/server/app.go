package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/config"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/clock"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/ledger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/lifecycle"
	"github.com/AtlasTheChosen/lockn-sub001/internal/events"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/postgres"
	"github.com/AtlasTheChosen/lockn-sub001/internal/service/progress"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
)

// application holds the shared dependencies of the server and owns their
// cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	transactor store.Transactor
	emitter    *events.InMemoryEventEmitter
	progress   *progress.Service
}

// newApplication wires the progress service over PostgreSQL.
func newApplication(cfg *config.Config, log *slog.Logger, db *sql.DB) *application {
	app := newApplicationWithTransactor(cfg, log, postgres.NewTransactor(db, log), clock.SystemNow)
	app.db = db
	return app
}

// newApplicationWithTransactor wires the progress service over any
// store.Transactor; tests pass an in-memory one and a fixed clock.
func newApplicationWithTransactor(
	cfg *config.Config,
	log *slog.Logger,
	tx store.Transactor,
	now clock.NowFunc,
) *application {
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(newEventLogger(log))

	svc := progress.NewService(tx, progress.Options{
		Now:     now,
		Logger:  log,
		Emitter: emitter,
		Streak: ledger.Policy{
			DailyRequirement: cfg.Streak.DailyRequirement,
			StreakGrace:      cfg.Streak.Grace(),
		},
		Checks: lifecycle.DeadlinePolicy{
			TestWindow:     cfg.Checks.TestWindow(),
			Grace:          cfg.Checks.Grace(),
			MaxOutstanding: cfg.Checks.MaxOutstanding,
		},
		WeeklyCap: cfg.Weekly.Cap,
		Retry: progress.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay(),
		},
	})

	log.Info("application initialized",
		slog.Int("daily_requirement", cfg.Streak.DailyRequirement),
		slog.Int("test_window_hours", cfg.Checks.TestWindowHours),
		slog.Int("weekly_cap", cfg.Weekly.Cap))

	return &application{
		config:     cfg,
		logger:     log,
		transactor: tx,
		emitter:    emitter,
		progress:   svc,
	}
}

// newEventLogger returns a handler that records every committed progress
// event. Collaborators register their own handlers next to it.
func newEventLogger(log *slog.Logger) events.EventHandler {
	log = log.With(slog.String("component", "progress_events"))
	return events.HandlerFunc(func(ctx context.Context, event *events.ProgressEvent) error {
		log.InfoContext(ctx, "progress event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.Type),
			slog.String("user_id", event.UserID.String()),
			slog.String("payload", string(event.Payload)))
		return nil
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and
// releases resources.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
}
