// Package app wires configuration into a running notifier. The Cloud
// Function and the long-running server share it.
package app

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/alert"
	"github.com/hamed0406/moisturealert/internal/config"
	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/httpapi"
	"github.com/hamed0406/moisturealert/internal/metrics"
	"github.com/hamed0406/moisturealert/internal/notify"
	"github.com/hamed0406/moisturealert/internal/platform"
	"github.com/hamed0406/moisturealert/internal/repo"
	"github.com/hamed0406/moisturealert/internal/repo/memory"
	"github.com/hamed0406/moisturealert/internal/repo/postgres"
	"github.com/hamed0406/moisturealert/internal/repo/rtdb"
	"github.com/hamed0406/moisturealert/internal/trigger"
)

type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Firebase *firebase.App // nil when neither FCM nor RTDB is used
	Metrics  *metrics.Collector
	Notifier *alert.Notifier
	RTDB     *trigger.RTDB

	Records  repo.RecordStore    // nil when no store is configured
	Writable bool                // Records fires updates itself (emulator)
	Listener *trigger.PGListener // nil without DATABASE_URL

	closers []func()
}

// initFirebase is swapped in tests.
var initFirebase = platform.Init

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if needsFirebase(cfg) {
		fb, err := initFirebase(ctx, platform.Options{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			DatabaseURL:     cfg.FirebaseDatabaseURL,
		})
		if err != nil {
			return nil, err
		}
		a.Firebase = fb
	}

	col, err := metrics.NewCollector()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.Metrics = col

	sender, err := notify.New(ctx, cfg, a.Firebase, logger)
	if err != nil {
		return nil, err
	}
	a.Notifier = alert.NewNotifier(logger, sender, col)
	a.RTDB = &trigger.RTDB{Path: cfg.MonitoringPath, Handler: a.Notifier, Logger: logger}

	if err := a.openRecords(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		a.Listener = &trigger.PGListener{
			DSN:     cfg.DatabaseURL,
			Channel: cfg.ListenChannel,
			Handler: a.Notifier,
			Logger:  logger.Named("pg_listener"),
		}
	}
	return a, nil
}

func (a *App) openRecords(ctx context.Context) error {
	cfg := a.Config
	switch {
	case cfg.Emulator:
		a.Records = memory.New(func(ctx context.Context, ch domain.Change) {
			a.Notifier.Handle(ctx, ch)
		})
		a.Writable = true
		a.Logger.Info("records_emulator")
	case cfg.DatabaseURL != "":
		st, err := postgres.New(ctx, cfg.DatabaseURL, a.Logger)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		a.Records = st
		a.Logger.Info("records_postgres")
	case cfg.FirebaseDatabaseURL != "" && a.Firebase != nil:
		st, err := rtdb.New(ctx, a.Firebase, cfg.MonitoringPath)
		if err != nil {
			return err
		}
		a.Records = st
		a.Logger.Info("records_rtdb", zap.String("path", cfg.MonitoringPath))
	}
	return nil
}

// Server returns the HTTP ingress over this app's notifier and records.
func (a *App) Server() *httpapi.Server {
	return httpapi.NewServer(a.Logger, a.Notifier, a.Records, a.Writable, a.Metrics)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func needsFirebase(cfg config.Config) bool {
	if cfg.Sender == config.SenderFCM {
		return true
	}
	return !cfg.Emulator && cfg.DatabaseURL == "" && cfg.FirebaseDatabaseURL != ""
}
