package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericfisherdev/deviceauth/internal/adapter/driven/crypto"
	sqliteadapter "github.com/ericfisherdev/deviceauth/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/deviceauth/internal/adapter/driving/http"
	"github.com/ericfisherdev/deviceauth/internal/application"
	"github.com/ericfisherdev/deviceauth/internal/config"
	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"auth_cache_ttl", cfg.AuthCacheTTL,
		"cache_sweep_interval", cfg.CacheSweepInterval,
		"credential_storage", cfg.HasSecretKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	schemaVersion, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "schema_version", schemaVersion)

	// 5. Wire adapters. Without a secret the store stays disabled and
	// resolution degrades to unauthenticated requests.
	var enc driven.Encryptor
	if cfg.HasSecretKey() {
		aead, err := crypto.NewAESGCM(cfg.SecretKey)
		if err != nil {
			return err
		}
		enc = aead
	} else {
		slog.Warn("DEVICEAUTH_SECRET_KEY not set, credential storage disabled")
	}
	credentialStore := sqliteadapter.NewCredentialRepo(db, enc)

	// 6. Create services. The auth-state cache listens for credential changes
	// so a stale "no auth needed" observation never outlives an edit.
	authState := application.NewAuthStateCache(cfg.AuthCacheTTL)
	credentialSvc := application.NewCredentialService(credentialStore, slog.Default(), authState)
	authSvc := application.NewAuthService(credentialStore, slog.Default())

	go application.RunAuthStateSweeper(ctx, authState, cfg.CacheSweepInterval, slog.Default())

	// 7. Create HTTP handler and register admin routes.
	apiHandler := httphandler.NewHandler(credentialSvc, authSvc, authState, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("deviceauth started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}
