package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Límites del listado paginado de movimientos.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// GetCurrentStock stock proyectado del producto. Si el producto quedó marcado tras un fallo
// de proyección, reconcilia antes de responder.
func (e *Engine) GetCurrentStock(ctx context.Context, productID string) (int64, error) {
	p, err := e.loadProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.CurrentStock, nil
}

// StockValue valor del stock actual: current_stock * unit_price.
func (e *Engine) StockValue(ctx context.Context, productID string) (decimal.Decimal, error) {
	p, err := e.loadProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.StockValue(), nil
}

// GetProduct producto con su stock proyectado y estado (LOW_STOCK, OVERSTOCK, NORMAL).
func (e *Engine) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	return e.loadProduct(ctx, productID)
}

func (e *Engine) loadProduct(ctx context.Context, productID string) (*entity.Product, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if e.isSuspect(productID) {
		if _, err := e.Reconcile(ctx, productID); err != nil {
			return nil, err
		}
	}
	p, err := e.products.GetByID(ctx, productID)
	if err != nil {
		return nil, domain.StorageError("cargar producto", err)
	}
	if p == nil {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (e *Engine) listProducts(ctx context.Context) ([]*entity.Product, error) {
	if err := e.reconcileSuspects(ctx); err != nil {
		return nil, err
	}
	products, err := e.products.ListAll(ctx)
	if err != nil {
		return nil, domain.StorageError("listar productos", err)
	}
	return products, nil
}

// GetLowStockAlerts alertas de productos activos con stock en o bajo el mínimo.
func (e *Engine) GetLowStockAlerts(ctx context.Context) ([]entity.LowStockAlert, error) {
	products, err := e.listProducts(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.LowStockAlerts(products), nil
}

// GetStockSummary resumen agregado del inventario.
func (e *Engine) GetStockSummary(ctx context.Context) (entity.StockSummary, error) {
	products, err := e.listProducts(ctx)
	if err != nil {
		return entity.StockSummary{}, err
	}
	return ledger.Summarize(products), nil
}

// SummaryFilter filtro del resumen mensual; todos los campos son opcionales y el rango es inclusivo.
type SummaryFilter struct {
	ProductID string
	From      *ledger.YearMonth
	To        *ledger.YearMonth
}

// GetMonthlySummary totales por producto y mes calculados desde el log.
// Solo incluye productos presentes en el catálogo.
func (e *Engine) GetMonthlySummary(ctx context.Context, filter SummaryFilter) ([]entity.MonthlySummary, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: rango de meses invertido", domain.ErrInvalidInput)
	}

	products, err := e.products.ListAll(ctx)
	if err != nil {
		return nil, domain.StorageError("listar productos", err)
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	mf := repository.MovementFilter{ProductID: filter.ProductID}
	if filter.From != nil {
		since := filter.From.Start()
		mf.Since = &since
	}
	if filter.To != nil {
		until := filter.To.End()
		mf.Until = &until
	}
	movs, err := e.movements.List(ctx, mf)
	if err != nil {
		return nil, domain.StorageError("leer log", err)
	}

	known := movs[:0]
	for _, m := range movs {
		if _, ok := names[m.ProductID]; ok {
			known = append(known, m)
		}
	}
	return ledger.MonthlySummaries(known, names, filter.From, filter.To), nil
}

// MovementPage página del historial de movimientos. NextCursor es 0 si no hay más.
type MovementPage struct {
	Movements  []*entity.StockMovement
	NextCursor int64
}

// ListMovements historial paginado en orden ascendente. El cursor es el Sequence del último
// movimiento recibido (AfterSequence).
func (e *Engine) ListMovements(ctx context.Context, filter repository.MovementFilter) (MovementPage, error) {
	if filter.Since != nil && filter.Until != nil && !filter.Since.Before(*filter.Until) {
		return MovementPage{}, fmt.Errorf("%w: rango de fechas vacío", domain.ErrInvalidInput)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultPageSize
	case filter.Limit > MaxPageSize:
		filter.Limit = MaxPageSize
	}
	limit := filter.Limit
	filter.Limit = limit + 1

	movs, err := e.movements.List(ctx, filter)
	if err != nil {
		return MovementPage{}, domain.StorageError("leer log", err)
	}
	page := MovementPage{Movements: movs}
	if len(movs) > limit {
		page.Movements = movs[:limit]
		page.NextCursor = movs[limit-1].Sequence
	}
	if page.Movements == nil {
		page.Movements = []*entity.StockMovement{}
	}
	return page, nil
}

// InitProduct inicializa el ledger de un producto recién creado con stock cero.
// Falla con ErrInvalidInput si el producto ya tiene movimientos.
func (e *Engine) InitProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	unlock, err := e.lockProduct(ctx, productID, e.cfg.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	err = e.tx.Run(ctx, func(
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
		existing, err := movRepo.ListByProduct(ctx, repository.MovementFilter{ProductID: productID, Limit: 1})
		if err != nil {
			return domain.StorageError("leer log", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: el producto %s ya tiene movimientos", domain.ErrInvalidInput, productID)
		}
		if err := stockRepo.Set(ctx, productID, 0); err != nil {
			return domain.StorageError("inicializar proyección", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.suspects.Delete(productID)
	e.log.Info().Str("product_id", productID).Msg("ledger de producto inicializado")
	return nil
}

// PurgeProduct elimina el producto y, en cascada, su historial de movimientos. Idempotente.
func (e *Engine) PurgeProduct(ctx context.Context, productID string) (int64, error) {
	if productID == "" {
		return 0, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	unlock, err := e.lockProduct(ctx, productID, e.cfg.LockTimeout)
	if err != nil {
		return 0, err
	}
	defer unlock()

	var purged int64
	started := time.Now()
	err = e.tx.Run(ctx, func(
		ctx context.Context,
		movRepo repository.StockMovementRepository,
		_ repository.StockRepository,
		productRepo repository.ProductRepository,
	) error {
		n, err := movRepo.DeleteByProduct(ctx, productID)
		if err != nil {
			return domain.StorageError("purgar movimientos", err)
		}
		purged = n
		if err := productRepo.Delete(ctx, productID); err != nil {
			return domain.StorageError("eliminar producto", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.suspects.Delete(productID)
	e.log.Info().Str("product_id", productID).Int64("movements", purged).Dur("took", time.Since(started)).Msg("producto purgado")
	return purged, nil
}
