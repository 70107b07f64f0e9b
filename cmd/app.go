package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/sport-scheduler/internal/booking"
	"github.com/example/sport-scheduler/internal/catalog"
	"github.com/example/sport-scheduler/internal/config"
	"github.com/example/sport-scheduler/internal/db"
	"github.com/example/sport-scheduler/internal/engine"
	"github.com/example/sport-scheduler/internal/migrate"
	"github.com/example/sport-scheduler/internal/notify"
	"github.com/example/sport-scheduler/internal/sportrick"
)

// app is the wired application shared by the CLI commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	db      *db.DB
	catalog catalog.Store
	manager *booking.Manager
	engine  *engine.Engine
}

// newApp loads config, connects the database, runs migrations when asked
// and wires every component.
func newApp(ctx context.Context, migrateUp bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, err
		}
	}

	catStore := catalog.NewPostgresStore(d)
	bookStore := booking.NewPostgresStore(d)

	manager := booking.NewManager(bookStore, booking.ManagerOptions{
		Location:     cfg.Location(),
		AdvanceDays:  cfg.AdvanceDays,
		ExpiryMargin: cfg.ConfirmExpiryMargin(),
		Logger:       logger.Named("booking"),
	})

	creds, err := sportrick.LoadCredentials(cfg.CredentialsFile, cfg.CredentialsKey)
	if err != nil {
		logger.Warn("site credentials unavailable, remote actions will fail", zap.Error(err))
	}
	client := sportrick.NewClient(cfg.SiteBaseURL, creds, cfg.PerActionTimeout(), logger.Named("sportrick"))

	var notifier notify.Notifier = notify.NewLogNotifier(logger.Named("notify"))
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier = notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger.Named("telegram"))
	}

	eng := engine.New(engine.Options{
		Manager:       manager,
		Catalog:       catStore,
		Synchronizer:  catalog.NewSynchronizer(catStore, logger.Named("catalog")),
		Sessions:      client,
		Notifier:      notifier,
		Logger:        logger.Named("engine"),
		ActionTimeout: cfg.PerActionTimeout(),
		ReminderLead:  cfg.ReminderLead(),
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      d,
		catalog: catStore,
		manager: manager,
		engine:  eng,
	}, nil
}

func (a *app) close() {
	a.db.Close()
	_ = a.logger.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
