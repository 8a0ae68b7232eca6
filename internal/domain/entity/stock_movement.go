package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN         = "IN"         // entrada
	MovementTypeOUT        = "OUT"        // salida
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste (se suma literalmente)
)

// DefaultActor actor registrado cuando el llamador no informa uno.
const DefaultActor = "system"

// StockMovement registro inmutable del log de movimientos.
// ID, Sequence y MovementDate los asigna el almacenamiento al hacer Append.
type StockMovement struct {
	ID              string
	Sequence        int64 // orden de inserción, desempata timestamps iguales
	ProductID       string
	Type            string
	Quantity        int64 // siempre positivo; el signo lo da Type
	UnitPrice       decimal.Decimal
	ReferenceNumber string
	Notes           string
	MovementDate    time.Time
	CreatedBy       string
}

// IsValidMovementType indica si t es uno de los tres tipos soportados.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeADJUSTMENT:
		return true
	}
	return false
}

// SignedQuantity contribución firmada del movimiento al stock: IN +q, OUT -q, ADJUSTMENT +q.
func (m *StockMovement) SignedQuantity() int64 {
	if m.Type == MovementTypeOUT {
		return -m.Quantity
	}
	return m.Quantity
}
