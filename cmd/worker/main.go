package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/app"
	"github.com/jhoicas/stock-ledger/jobs"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	}).Named("worker")

	if cfg.DB.Driver != config.StoragePostgres {
		log.Fatal().Str("storage", cfg.DB.Driver).Msg("el worker necesita STORAGE_DRIVER=postgres")
	}

	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento del ledger")
	}
	defer storage.Close()

	rdb := app.NewRedis(cfg.Redis)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar redis")
		}
	}()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis no responde")
	}

	// El worker comparte los bloqueos con la API solo si ambos usan Redis.
	if cfg.Ledger.LockBackend != config.LockRedis {
		log.Warn().Msg("LOCK_BACKEND=memory: la reconciliación no se coordina con otros procesos")
	}
	locker, err := app.NewLocker(cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bloqueo por producto")
	}
	engine := app.NewEngine(cfg, storage, locker, log, app.EngineOptions{})

	reconcileJob := jobs.NewReconcileJob(engine, log)
	var cron []jobs.CronRegistration
	if cfg.Ledger.ReconcileCron != "" {
		// Sin fecha: cada ejecución del cron reconcilia el catálogo vigente.
		task, err := jobs.NewReconcileTask("", time.Time{})
		if err != nil {
			log.Fatal().Err(err).Msg("construir tarea de reconciliación")
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.Ledger.ReconcileCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   app.AsynqOpts(cfg.Redis),
		Concurrency: cfg.Ledger.WorkerConcurrency,
		Log:         log,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerReconcile, Handler: reconcileJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("iniciar worker")
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker finalizado")
	}
	log.Info().Msg("worker detenido")
}
