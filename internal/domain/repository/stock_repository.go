package repository

import "context"

// StockRepository puerto de la proyección cacheada (stock actual por producto).
// Usado dentro de transacciones junto con el log para mantener consistencia.
type StockRepository interface {
	// Get devuelve el stock cacheado; domain.ErrProductNotFound si el producto no existe.
	Get(ctx context.Context, productID string) (int64, error)
	// Apply suma delta al cache y devuelve el nuevo valor.
	Apply(ctx context.Context, productID string, delta int64) (int64, error)
	// Set sobrescribe el cache (reconciliación).
	Set(ctx context.Context, productID string, quantity int64) error
}
