package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	// replayBatch tamaño de página al releer el log de un producto.
	replayBatch = 500
	// suspectLockWait espera por producto pendiente antes de una lectura agregada.
	suspectLockWait = 10 * time.Millisecond
)

// ReconcileResult resultado de reconciliar un producto.
type ReconcileResult struct {
	ProductID  string
	Corrected  bool  // el cache fue sobrescrito
	Delta      int64 // Recomputed - Cached
	Cached     int64
	Recomputed int64
}

// Reconcile recalcula el stock del producto desde el log y sobrescribe el cache si difiere.
// Reconciliaciones concurrentes del mismo producto comparten una sola ejecución, de modo que
// cada divergencia se reporta una vez. La ejecución compartida no depende de la cancelación
// de ningún llamador; cada llamador deja de esperar cuando su ctx termina.
func (e *Engine) Reconcile(ctx context.Context, productID string) (ReconcileResult, error) {
	if productID == "" {
		return ReconcileResult{}, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := e.flight.DoChan(productID, func() (any, error) {
		unlock, err := e.lockProduct(flightCtx, productID, e.cfg.LockTimeout)
		if err != nil {
			return ReconcileResult{}, err
		}
		defer unlock()
		return e.reconcileLocked(flightCtx, productID)
	})
	select {
	case <-ctx.Done():
		return ReconcileResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return ReconcileResult{}, r.Err
		}
		return r.Val.(ReconcileResult), nil
	}
}

// reconcileLocked requiere el bloqueo del producto tomado por el llamador.
func (e *Engine) reconcileLocked(ctx context.Context, productID string) (ReconcileResult, error) {
	res := ReconcileResult{ProductID: productID}
	err := e.tx.Run(ctx, func(
		ctx context.Context,
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		productRepo repository.ProductRepository,
	) error {
		product, err := productRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return domain.StorageError("cargar producto", err)
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		res.Cached = product.CurrentStock

		res.Recomputed, err = replay(ctx, movRepo, productID)
		if err != nil {
			return err
		}
		res.Delta = res.Recomputed - res.Cached
		if res.Delta == 0 {
			return nil
		}
		if err := stockRepo.Set(ctx, productID, res.Recomputed); err != nil {
			return domain.StorageError("sobrescribir proyección", err)
		}
		res.Corrected = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			e.suspects.Delete(productID)
		}
		return ReconcileResult{}, err
	}

	e.suspects.Delete(productID)
	if res.Corrected {
		e.reportDrift(&domain.ProjectionDriftError{
			ProductID:  productID,
			Cached:     res.Cached,
			Recomputed: res.Recomputed,
		})
	}
	return res, nil
}

// replay pliega el log completo del producto leyéndolo por páginas.
func replay(ctx context.Context, movRepo repository.StockMovementRepository, productID string) (int64, error) {
	var (
		total  int64
		cursor int64
	)
	for {
		page, err := movRepo.ListByProduct(ctx, repository.MovementFilter{
			ProductID:     productID,
			AfterSequence: cursor,
			Limit:         replayBatch,
		})
		if err != nil {
			return 0, domain.StorageError("leer log", err)
		}
		total = ledger.FoldFrom(total, page)
		if len(page) < replayBatch {
			return total, nil
		}
		cursor = page[len(page)-1].Sequence
	}
}

func (e *Engine) reportDrift(drift *domain.ProjectionDriftError) {
	e.log.Warn().
		Str("product_id", drift.ProductID).
		Int64("cached", drift.Cached).
		Int64("recomputed", drift.Recomputed).
		Int64("delta", drift.Delta()).
		Msg("divergencia de proyección corregida")
	if e.onDrift != nil {
		e.onDrift(drift)
	}
}

// ReconcileAll reconcilia todos los productos con concurrencia acotada.
// Los productos eliminados durante la pasada se omiten; el primer otro error cancela el resto.
func (e *Engine) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	products, err := e.products.ListAll(ctx)
	if err != nil {
		return nil, domain.StorageError("listar productos", err)
	}

	results := make([]ReconcileResult, len(products))
	found := make([]bool, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ReconcileConcurrency)
	for i, p := range products {
		g.Go(func() error {
			res, err := e.Reconcile(gctx, p.ID)
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reconciliar %s: %w", p.ID, err)
			}
			results[i] = res
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ReconcileResult, 0, len(results))
	corrected := 0
	for i, res := range results {
		if !found[i] {
			continue
		}
		if res.Corrected {
			corrected++
		}
		out = append(out, res)
	}
	e.log.Info().Int("products", len(out)).Int("corrected", corrected).Msg("reconciliación completa")
	return out, nil
}

// reconcileSuspects reconcilia los productos marcados antes de una lectura agregada.
// Un producto cuyo bloqueo está ocupado se informa con su stock cacheado y sigue marcado.
func (e *Engine) reconcileSuspects(ctx context.Context) error {
	wait := min(suspectLockWait, e.cfg.LockTimeout)
	for _, id := range e.SuspectProducts() {
		unlock, err := e.lockProduct(ctx, id, wait)
		if errors.Is(err, domain.ErrLockTimeout) {
			e.log.Warn().Str("product_id", id).Msg("producto pendiente ocupado; se usa el stock cacheado")
			e.notifySuspect(id)
			continue
		}
		if err != nil {
			return err
		}
		_, err = e.reconcileLocked(ctx, id)
		unlock()
		if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
			return err
		}
	}
	return nil
}
