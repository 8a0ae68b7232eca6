package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza que el append al log y el ajuste de la proyección se confirmen juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ctx context.Context,
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// Locker exclusión mutua por clave. Lock respeta el deadline de ctx y devuelve ctx.Err()
// si no obtiene la clave a tiempo; la función devuelta libera el bloqueo.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
