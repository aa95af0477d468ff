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

	"github.com/willemschots/gatekeeper/internal"
	"github.com/willemschots/gatekeeper/internal/access"
	"github.com/willemschots/gatekeeper/internal/auth"
	authdb "github.com/willemschots/gatekeeper/internal/auth/db"
	"github.com/willemschots/gatekeeper/internal/auth/memory"
	"github.com/willemschots/gatekeeper/internal/db"
	"github.com/willemschots/gatekeeper/internal/migrate"
	"github.com/willemschots/gatekeeper/internal/observability"
	"github.com/willemschots/gatekeeper/internal/redact"
	"github.com/willemschots/gatekeeper/internal/web"
	"github.com/willemschots/gatekeeper/migrations"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := newLogger(w, defaultConfig().log)

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	logger = newLogger(w, cfg.log)

	store, closeStore, err := openStore(ctx, logger, cfg.db)
	if err != nil {
		logger.Error("failed to open user store", "driver", cfg.db.driver, "error", err)
		return 1
	}
	defer closeStore()

	hasher, err := auth.NewHasher(cfg.auth.hasher)
	if err != nil {
		logger.Error("failed to create password hasher", "error", err)
		return 1
	}

	tokens, err := auth.NewTokenGenerator(cfg.auth.tokenFormat)
	if err != nil {
		logger.Error("failed to create token generator", "error", err)
		return 1
	}

	authSvc, err := auth.NewService(store, hasher, tokens, logger)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	guard, err := access.NewGuard(cfg.http.excludedPaths)
	if err != nil {
		logger.Error("failed to create access guard", "error", err)
		return 1
	}

	reg := observability.NewRegistry()

	handler := web.NewServer(&web.ServerDeps{
		Logger:         logger,
		AuthService:    authSvc,
		Guard:          guard,
		Metrics:        observability.NewMetrics(reg),
		MetricsHandler: observability.Handler(reg),
	}, cfg.http.server)

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler:      handler,
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.http.addr, internal.BuildAttr())
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

// newLogger creates a logger that redacts PII before writing to w.
func newLogger(w io.Writer, cfg logConfig) *slog.Logger {
	var h slog.Handler
	if cfg.format == "json" {
		h = slog.NewJSONHandler(w, nil)
	} else {
		h = slog.NewTextHandler(w, nil)
	}

	r := redact.New(cfg.piiFields, redact.DefaultRedaction, redact.DefaultSeparator)
	return slog.New(redact.NewHandler(h, r))
}

// openStore opens the user store for the configured driver. The returned
// func releases the store.
func openStore(ctx context.Context, logger *slog.Logger, cfg dbConfig) (auth.Store, func(), error) {
	if cfg.driver == driverMemory {
		logger.Warn("using in-memory user store, users are lost on restart")
		return memory.New(), func() {}, nil
	}

	sqlDB, err := db.Open(cfg.driver, string(cfg.dsn.SecretValue()))
	if err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}

	dialect := cfg.driver.Dialect()

	if cfg.migrate {
		err = migrateDB(ctx, logger, sqlDB, dialect)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
	}

	return authdb.New(sqlDB, dialect), closeDB, nil
}

func migrateDB(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB, dialect db.Dialect) error {
	logger.Info("attempting to migrate database", "dialect", dialect)

	fsys, err := migrations.FS(dialect)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	ran, err := migrate.RunFS(ctx, sqlDB, dialect, fsys, migrate.Metadata{
		AppVersion: internal.BuildRevision,
		Timestamp:  time.Now(),
	})
	if err != nil {
		return err
	}

	for _, m := range ran {
		logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
	}

	logger.Info("database migrated", "migrationsRan", len(ran))

	return nil
}
