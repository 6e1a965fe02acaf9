package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/jhoicas/liquid-ledger/internal/bootstrap"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/liquid-ledger/pkg/config"
	"github.com/jhoicas/liquid-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name + "-worker",
	})
	if !cfg.Redis.Enabled() {
		log.Fatal().Msg("REDIS_ADDR es obligatorio para el worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledgerApp, err := bootstrap.New(ctx, cfg, log.Zerolog(), bootstrap.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar libro")
	}
	defer func() {
		if err := ledgerApp.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar recursos")
		}
	}()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   bootstrap.RedisOpt(cfg.Redis),
		Logger:      log.Zerolog(),
		Job:         jobs.NewReconcileJob(ledgerApp.Service, log.Component("reconcile")),
		Concurrency: cfg.Ledger.WorkerConcurrency,
		CronSpec:    cfg.Ledger.ReconcileCron,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("crear worker")
	}

	log.Info().Str("cron", cfg.Ledger.ReconcileCron).Msg("iniciando worker de conciliación")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker finalizado")
		return
	}
	log.Info().Msg("worker detenido")
}
