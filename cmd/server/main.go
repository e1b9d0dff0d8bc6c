// Command server runs the realty dashboard backend: the signed spreadsheet
// webhook, the admin endpoints and the live snapshot stream.
//
// @title       Realty Dashboard API
// @version     1.0
// @description Signed spreadsheet webhook ingestion and live apartment snapshots over SSE.
// @BasePath    /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/realty-dashboard/docs"
	"github.com/tbourn/realty-dashboard/internal/broadcast"
	"github.com/tbourn/realty-dashboard/internal/config"
	httpapi "github.com/tbourn/realty-dashboard/internal/http"
	"github.com/tbourn/realty-dashboard/internal/observability"
	"github.com/tbourn/realty-dashboard/internal/repo"
	"github.com/tbourn/realty-dashboard/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger(os.Stderr, "info", false)
		log.Fatal().Err(err).Msg("load config")
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return err
		}
	}

	if cfg.Webhook.Secret == "" {
		log.Warn().Msg("WEBHOOK_SECRET is empty; every webhook will fail signature checks")
	}
	if cfg.Webhook.AllowAllIPs {
		log.Warn().Msg("ALLOW_ALL_IPS is set; the webhook source address is not checked")
	}
	if cfg.Webhook.AdminSecret == "" {
		log.Warn().Msg("ADMIN_SECRET is empty; admin delete routes are disabled")
	}

	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = version

	hub := broadcast.NewHub()
	r := gin.New()
	httpapi.RegisterRoutes(r, db, hub, cfg, httpapi.Options{})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Str("db", cfg.DBPath).
			Str("version", version).
			Msg("listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	// Streams never finish on their own; close them first so Shutdown can
	// drain the remaining requests.
	hub.Close()

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return srv.Close()
	}
	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("server stopped")
	return nil
}
