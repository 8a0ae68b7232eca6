package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/app"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/jobs"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.DB.Driver).
		Str("lock", cfg.Ledger.LockBackend).
		Msg("iniciando aplicación")

	ctx := context.Background()
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento del ledger")
	}
	defer storage.Close()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = app.NewRedis(cfg.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde")
		}
	}

	locker, err := app.NewLocker(cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bloqueo por producto")
	}

	var opts app.EngineOptions
	if cfg.Ledger.JobsEnabled {
		client := jobs.NewClient(app.AsynqOpts(cfg.Redis))
		defer client.Close()
		opts.Jobs = client
	}
	engine := app.NewEngine(cfg, storage, locker, log, opts)

	if cfg.Ledger.ReconcileOnStartup {
		results, err := engine.ReconcileAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("reconciliación inicial")
		} else {
			corrected := 0
			for _, r := range results {
				if r.Corrected {
					corrected++
				}
			}
			log.Info().Int("products", len(results)).Int("corrected", corrected).Msg("reconciliación inicial")
		}
	}

	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	fiberApp.Use(recover.New())

	httpRouter.Router(fiberApp, httpRouter.RouterDeps{
		AppName: cfg.App.Name,
		Engine:  engine,
		Log:     log.Named("http"),
	})

	go func() {
		if err := fiberApp.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
