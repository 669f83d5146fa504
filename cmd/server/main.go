package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicetool/internal/config"
	"invoicetool/internal/infra"
	"invoicetool/internal/router"
	"invoicetool/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title                       invoicetool API
// @version                     1.0
// @description                 E-invoicing backend: XRechnung, ZUGFeRD, PDF/A-3, payments and VAT reporting.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("failed to create storage directories")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	icc, err := cfg.ICCProfile()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read ICC profile")
	}
	if icc == nil {
		log.Warn().Msg("no ICC profile configured; PDFs carry no output intent")
	}

	deps := router.Deps{
		DB:     db,
		Redis:  rdb,
		VIES:   infra.NewVIESClient(cfg.VIESEndpoint, cfg.EnableVIES, infra.NewCircuitBreaker(infra.DefaultCBConfig()), rdb),
		Peppol: infra.NewPeppolClient(cfg.PeppolEndpoint),
		Store:  infra.NewArchiveStore(cfg.ArchivePath),
		ICC:    icc,
	}
	svcs, err := router.NewServices(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire services")
	}

	// Worker handlers are wired here (composition root) so that the pool
	// reaches the same services as the HTTP API.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)
	if !mailer.Configured() {
		log.Warn().Msg("SMTP not configured; invoice e-mails are skipped")
	}
	workers := worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, map[string]worker.Handler{
		worker.JobArchive: worker.NewArchiveWorker(svcs.Documents),
		worker.JobEmail:   worker.NewEmailWorker(mailer, svcs.Documents),
	})

	r := router.New(cfg, deps, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("invoicetool listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	workers.Wait()
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev gets pretty console output, prod gets JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
