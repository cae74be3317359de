package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/porthealth/porthealth/internal"
	"github.com/porthealth/porthealth/internal/account"
	accountdb "github.com/porthealth/porthealth/internal/account/db"
	"github.com/porthealth/porthealth/internal/db"
	"github.com/porthealth/porthealth/internal/db/migrate"
	"github.com/porthealth/porthealth/internal/onboarding"
	"github.com/porthealth/porthealth/internal/web"
	"github.com/porthealth/porthealth/internal/web/sessions"
	"github.com/porthealth/porthealth/migrations"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: cfg.logLevel,
	}))

	writeDB, err := db.OpenSQLite(cfg.db.driver, cfg.db.file, true)
	if err != nil {
		logger.Error("failed to open write database", "error", err)
		return 1
	}
	defer closeDB(logger, writeDB)

	if cfg.db.migrate {
		err = runMigrations(ctx, logger, writeDB)
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}
	}

	// the read pool is opened after migrating, read only connections
	// can't create the database file.
	readDB, err := db.OpenSQLite(cfg.db.driver, cfg.db.file, false)
	if err != nil {
		logger.Error("failed to open read database", "error", err)
		return 1
	}
	defer closeDB(logger, readDB)

	accountSvc, err := account.NewService(accountdb.New(writeDB, readDB))
	if err != nil {
		logger.Error("failed to create account service", "error", err)
		return 1
	}

	server := web.NewServer(&web.ServerDeps{
		Logger:       logger,
		Controller:   onboarding.NewController(logger, accountSvc),
		Profiles:     accountSvc,
		SessionStore: sessions.NewCookieStore(cfg.http.cookieKeys, cfg.http.secureCookie),
		Tokens:       web.NewTokenIssuer(cfg.http.tokenKey, cfg.http.tokenExpiry),

		FlowIdleTimeout: cfg.http.flowIdleTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler:      server,
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"dbDriver", cfg.db.driver,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

func runMigrations(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB) error {
	logger.Info("attempting to migrate database")

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	ran, err := migrate.RunFS(ctx, sqlDB, migrations.FS, migrate.Metadata{
		AppVersion: internal.BuildRevision,
		Timestamp:  internal.BuildRevisionTime,
	})
	if err != nil {
		return err
	}

	for _, m := range ran {
		logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
	}

	if len(ran) == 0 {
		logger.Info("no migrations ran, database is up to date")
	}

	return nil
}

func closeDB(logger *slog.Logger, sqlDB *sql.DB) {
	err := sqlDB.Close()
	if err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
