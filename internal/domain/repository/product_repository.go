package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository puerto de lectura de productos que ofrece la capa CRUD externa.
// GetByID y GetForUpdate devuelven (nil, nil) si el producto no existe.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate obtiene el producto y bloquea su fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// ListAll devuelve todos los productos con su stock proyectado, ordenados por ID.
	ListAll(ctx context.Context) ([]*entity.Product, error)
	// Delete elimina el producto; idempotente.
	Delete(ctx context.Context, id string) error
}
