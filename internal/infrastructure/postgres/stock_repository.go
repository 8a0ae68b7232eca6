package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo proyección cacheada en products.current_stock (usable con pool o tx).
// Las escrituras solo prosperan dentro de TxRunner (ledger.projection_writer).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get stock cacheado del producto.
func (r *StockRepo) Get(ctx context.Context, productID string) (int64, error) {
	var qty int64
	err := r.q.QueryRow(ctx, `SELECT current_stock FROM products WHERE id = $1`, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, mapError("get stock", err)
	}
	return qty, nil
}

// Apply suma delta en una sola sentencia; el CHECK current_stock >= 0 rechaza saldos negativos.
func (r *StockRepo) Apply(ctx context.Context, productID string, delta int64) (int64, error) {
	var qty int64
	err := r.q.QueryRow(ctx, `
		UPDATE products SET current_stock = current_stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING current_stock`, productID, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, mapError("apply stock", err)
	}
	return qty, nil
}

// Set sobrescribe el cache (reconciliación e inicialización).
func (r *StockRepo) Set(ctx context.Context, productID string, quantity int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE products SET current_stock = $2, updated_at = now() WHERE id = $1`, productID, quantity)
	if err != nil {
		return mapError("set stock", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
