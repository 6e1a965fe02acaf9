// Package bootstrap arma el servicio del libro a partir de la configuración:
// almacenamiento, reloj, métricas y cola de conciliación. Lo comparten los binarios de cmd/.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/badgerstore"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/clock"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/liquid-ledger/pkg/config"
)

// Options qué piezas opcionales se encienden.
type Options struct {
	// EnqueueReconcile encola conciliaciones tras saldos negativos (requiere Redis).
	EnqueueReconcile bool
	// Migrate aplica las migraciones pendientes al abrir PostgreSQL.
	Migrate bool
}

// App servicio del libro listo para usar, con los recursos que hay que cerrar.
type App struct {
	Service  *ledger.Service
	Registry *prometheus.Registry

	closers []func() error
}

// Close libera los recursos en orden inverso al de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// storage los puertos del libro de un backend concreto.
type storage struct {
	tx        ledger.TxRunner
	parts     repository.PartRepository
	movements repository.MovementRepository
	stocks    repository.LocationStockRepository
}

// New abre el almacenamiento, el reloj y las métricas según cfg y construye el servicio.
// Ante error cierra lo que ya se había abierto.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (_ *App, err error) {
	app := &App{Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(app.Registry)
	if err != nil {
		return nil, fmt.Errorf("métricas: %w", err)
	}

	st, err := app.openStorage(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}
	clk, err := app.openClock(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svcCfg := ledger.Config{
		VarianceThreshold: cfg.Ledger.VarianceThreshold,
		Logger:            log.With().Str("component", "ledger").Logger(),
		Recorder:          recorder,
	}
	if opts.EnqueueReconcile && cfg.Redis.Enabled() {
		client := asynq.NewClient(RedisOpt(cfg.Redis))
		app.closers = append(app.closers, client.Close)
		svcCfg.Scheduler = jobs.NewEnqueuer(client)
	}

	app.Service = ledger.NewService(st.tx, st.parts, st.movements, st.stocks, clk, svcCfg)
	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("clock", cfg.Ledger.Clock).
		Bool("reconcile_queue", svcCfg.Scheduler != nil).
		Msg("libro de líquidos listo")
	return app, nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB, log.With().Str("component", "postgres").Logger())
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if opts.Migrate {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				return nil, err
			}
		}
		return &storage{
			tx:        postgres.NewTxRunner(pool),
			parts:     postgres.NewPartRepository(pool),
			movements: postgres.NewMovementRepository(pool),
			stocks:    postgres.NewLocationStockRepository(pool),
		}, nil

	case config.StorageBadger:
		bcfg := badgerstore.InMemoryConfig()
		if cfg.Storage.BadgerPath != "" {
			bcfg = badgerstore.DefaultConfig(cfg.Storage.BadgerPath)
		}
		bcfg.Logger = log.With().Str("component", "badger").Logger()
		store, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, fmt.Errorf("abrir badger: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return &storage{tx: store, parts: store.Parts(), movements: store.Movements(), stocks: store.Stocks()}, nil

	case config.StorageMemory:
		store := memory.NewStore()
		return &storage{tx: store, parts: store.Parts(), movements: store.Movements(), stocks: store.Stocks()}, nil
	}
	return nil, fmt.Errorf("STORAGE_DRIVER desconocido: %q", cfg.Storage.Driver)
}

func (a *App) openClock(ctx context.Context, cfg *config.Config) (ledger.Clock, error) {
	if cfg.Ledger.Clock != config.ClockRedis {
		return clock.NewLocal(), nil
	}
	client, err := clock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return clock.NewRedis(client, clock.DefaultRedisKey), nil
}

// RedisOpt opciones de conexión de asynq a partir de la configuración de Redis.
func RedisOpt(c config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}
