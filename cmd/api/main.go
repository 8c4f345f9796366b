// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the MockExam authentication API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables (and an optional .env).
//  3. Connect to MongoDB.
//  4. Connect to Redis.
//  5. Ensure collection indexes (idempotent).
//  6. Wire token service, OAuth providers and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/taibuivan/mockexam/internal/api"
	"github.com/taibuivan/mockexam/internal/platform/config"
	"github.com/taibuivan/mockexam/internal/platform/constants"
	"github.com/taibuivan/mockexam/internal/platform/metrics"
	"github.com/taibuivan/mockexam/internal/platform/migration"
	"github.com/taibuivan/mockexam/internal/platform/mongodb"
	redisstore "github.com/taibuivan/mockexam/internal/platform/redis"
	"github.com/taibuivan/mockexam/internal/platform/sec"
	"github.com/taibuivan/mockexam/internal/users/auth"
	"github.com/taibuivan/mockexam/internal/users/oauth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[MockExam] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("refresh_rotation", cfg.RotateRefreshTokens),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. MongoDB ────────────────────────────────────────────────────────
	mongoClient, err := mongodb.NewClient(startupCtx, cfg.MongoURI, cfg.MongoDatabase, log)
	must(log, err, "connect to mongodb")
	defer func() {
		log.Info("closing mongodb client")
		if cerr := mongoClient.Close(); cerr != nil {
			log.Error("mongodb close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.MongoURI, cfg.MongoDatabase, auth.Migrations, auth.MigrationsDir, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.TokenIssuer,
	})
	must(log, err, "initialize token service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: mongoClient.Ping,
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	registry := metrics.New("mockexam")

	userRepository := auth.NewUserRepository(mongoClient.Database())
	authService := auth.NewService(userRepository, tokenService, auth.Options{
		RotateRefreshTokens: cfg.RotateRefreshTokens,
		Recorder:            registry,
	})
	authHandler := auth.NewHandler(authService, auth.HandlerConfig{
		SecureCookies: cfg.IsProduction(),
		FrontendURL:   cfg.FrontendURL,
		Providers:     oauthProviders(cfg, log),
		States:        oauth.NewRedisStateStore(rdb, constants.OAuthStateTTL),
	})

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
	}

	server := api.NewServer(cfg, log, tokenService, registry, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// oauthProviders enables every provider whose credentials are complete.
func oauthProviders(cfg *config.Config, log *slog.Logger) oauth.Registry {
	var providers []oauth.Provider

	if google := cfg.Google(); google.Enabled() {
		providers = append(providers, oauth.NewGoogle(oauth.Credentials(google)))
	}
	if facebook := cfg.Facebook(); facebook.Enabled() {
		providers = append(providers, oauth.NewFacebook(oauth.Credentials(facebook)))
	}

	registry := oauth.NewRegistry(providers...)
	for name := range registry {
		log.Info("oauth_provider_enabled", slog.String("provider", name))
	}
	return registry
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
