package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter filtro para leer el log. Since es inclusivo y Until exclusivo.
// AfterSequence permite reanudar una lectura desde el último Sequence recibido.
type MovementFilter struct {
	ProductID     string // vacío = todos los productos
	Since         *time.Time
	Until         *time.Time
	AfterSequence int64
	Limit         int // 0 = sin límite
}

// StockMovementRepository puerto del log de movimientos (append-only).
type StockMovementRepository interface {
	// Append persiste el movimiento y asigna ID, Sequence y MovementDate.
	// MovementDate es estrictamente creciente por producto.
	Append(ctx context.Context, movement *entity.StockMovement) error
	// ListByProduct devuelve los movimientos del producto en orden (MovementDate, Sequence) ascendente.
	ListByProduct(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	// List igual que ListByProduct pero ProductID es opcional; entre productos el orden es el de Sequence,
	// lo que hace de AfterSequence un cursor estable.
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	// DeleteByProduct purga en cascada el historial de un producto eliminado.
	DeleteByProduct(ctx context.Context, productID string) (int64, error)
}
