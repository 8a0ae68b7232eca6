// Package app arma el motor del ledger a partir de la configuración; lo comparten cmd/api y cmd/worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/jobs"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Storage repositorios y runner transaccional del backend elegido.
type Storage struct {
	Tx        inventory.TxRunner
	Products  repository.ProductRepository
	Movements repository.StockMovementRepository
	close     func()
}

// Close libera el pool si lo hay.
func (s *Storage) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStorage abre PostgreSQL o el store en memoria según STORAGE_DRIVER.
func OpenStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Storage, error) {
	if cfg.DB.Driver == config.StoragePostgres {
		pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
		if err != nil {
			return nil, err
		}
		if cfg.DB.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrar esquema: %w", err)
			}
			log.Info().Msg("esquema del ledger aplicado")
		}
		return &Storage{
			Tx:        postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
			Products:  postgres.NewProductRepository(pool),
			Movements: postgres.NewMovementRepository(pool),
			close:     pool.Close,
		}, nil
	}

	store := memory.NewStore()
	if cfg.Ledger.CatalogFile != "" {
		n, err := loadCatalog(store, cfg.Ledger.CatalogFile, cfg.Ledger.CatalogCharset)
		if err != nil {
			return nil, err
		}
		log.Info().Int("products", n).Str("file", cfg.Ledger.CatalogFile).Msg("catálogo cargado en memoria")
	} else {
		log.Warn().Msg("STORAGE_DRIVER=memory sin CATALOG_FILE: el catálogo inicia vacío")
	}
	return &Storage{Tx: store, Products: store.Products(), Movements: store.Movements()}, nil
}

func loadCatalog(store *memory.Store, path, charset string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("abrir catálogo: %w", err)
	}
	defer f.Close()

	products, err := catalog.Load(f, charset)
	if err != nil {
		return 0, fmt.Errorf("catálogo %s: %w", path, err)
	}
	for _, p := range products {
		store.PutProduct(p)
	}
	return len(products), nil
}

// NewRedis cliente compartido por el locker distribuido.
func NewRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// AsynqOpts conexión de asynq con la misma configuración de Redis.
func AsynqOpts(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewLocker bloqueo por producto en proceso o distribuido según LOCK_BACKEND.
func NewLocker(cfg *config.Config, rdb *redis.Client, log *logger.Logger) (inventory.Locker, error) {
	if cfg.Ledger.LockBackend != config.LockRedis {
		return lock.NewKeyedLocker(), nil
	}
	if rdb == nil {
		return nil, errors.New("LOCK_BACKEND=redis requiere un cliente Redis")
	}
	return lock.NewRedisLocker(rdb, cfg.Ledger.LockTTL, log.Named("lock")), nil
}

// EngineOptions ganchos opcionales del motor.
type EngineOptions struct {
	// Jobs si no es nil, las divergencias y los productos pendientes se reconcilian vía asynq.
	Jobs *jobs.Client
	// OnDrift recibe cada divergencia corregida, además del log del motor.
	OnDrift func(*domain.ProjectionDriftError)
}

// NewEngine construye el motor.
func NewEngine(cfg *config.Config, st *Storage, locker inventory.Locker, log *logger.Logger, opts EngineOptions) *inventory.Engine {
	deps := inventory.EngineDeps{
		Tx:        st.Tx,
		Products:  st.Products,
		Movements: st.Movements,
		Locker:    locker,
		Log:       log,
		OnDrift:   opts.OnDrift,
		Config: inventory.Config{
			LockTimeout:          cfg.Ledger.LockTimeout,
			ReconcileConcurrency: cfg.Ledger.ReconcileConcurrency,
		},
	}
	if opts.Jobs != nil {
		client := opts.Jobs
		deps.OnSuspect = func(productID string) {
			if _, err := client.EnqueueReconcile(context.Background(), productID); err != nil {
				log.Error().Err(err).Str("product_id", productID).Msg("no se pudo encolar la reconciliación")
			}
		}
	}
	return inventory.NewEngine(deps)
}
