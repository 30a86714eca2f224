// @title                      POS Admin API
// @version                    1.0
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posadmin/internal/config"
	"posadmin/internal/infra"
	"posadmin/internal/router"
	"posadmin/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// dev: pretty, prod: JSON
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := infra.NewMinIOStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to object storage")
	}
	if storage == nil {
		log.Warn().Msg("MINIO_ENDPOINT not set, product image uploads disabled")
	}

	// Worker handlers are wired here so the pool sees every infra dependency.
	deps := router.Deps{Storage: storage}
	mailer := infra.NewMailer(cfg)
	if mailer.Enabled() {
		pool := worker.NewPool(rdb)
		pool.Register(worker.JobEmail, worker.NewEmailWorker(mailer).Process)
		pool.Start(ctx, cfg.WorkerPoolSize)
		deps.Dispatcher = worker.NewDispatcher(rdb)
	} else {
		log.Warn().Msg("SMTP_HOST not set, account emails disabled")
	}

	r := router.New(ctx, cfg, db, rdb, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("%s listening on :%d", cfg.AppName, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
