package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/liquid-ledger/docs"
	"github.com/jhoicas/liquid-ledger/internal/bootstrap"
	httpRouter "github.com/jhoicas/liquid-ledger/internal/interfaces/http"
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
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledgerApp, err := bootstrap.New(ctx, cfg, log.Zerolog(), bootstrap.Options{
		EnqueueReconcile: true,
		Migrate:          cfg.App.Env == "development",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar libro")
	}
	defer func() {
		if err := ledgerApp.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar recursos")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    docs.SwaggerInfo.Title,
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledgerApp.Service,
		JWTSecret: cfg.JWT.Secret,
		Logger:    log.Component("http"),
		Gatherer:  ledgerApp.Registry,
		AppName:   cfg.App.Name,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("servidor HTTP finalizado")
		_ = ledgerApp.Close()
		os.Exit(1)
	}
	log.Info().Msg("aplicación detenida")
}
