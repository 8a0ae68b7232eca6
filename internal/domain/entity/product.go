package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de stock derivados de los umbrales del producto.
const (
	StockStatusLow       = "LOW_STOCK"
	StockStatusOverstock = "OVERSTOCK"
	StockStatusNormal    = "NORMAL"
)

// Product datos maestros que lee el ledger. El CRUD vive fuera de este módulo.
// CurrentStock es la proyección cacheada del log de movimientos; nunca es la fuente de verdad.
type Product struct {
	ID           string
	Code         string
	Name         string
	CategoryID   *string
	SupplierID   *string
	UnitPrice    decimal.Decimal
	MinimumStock int64
	MaximumStock int64
	IsActive     bool
	CurrentStock int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLowStock stock actual en o por debajo del mínimo.
func (p *Product) IsLowStock() bool {
	return p.CurrentStock <= p.MinimumStock
}

// IsOverstock stock actual en o por encima del máximo.
func (p *Product) IsOverstock() bool {
	return p.CurrentStock >= p.MaximumStock
}

// StockStatus LOW_STOCK, OVERSTOCK o NORMAL (el mínimo tiene prioridad).
func (p *Product) StockStatus() string {
	switch {
	case p.IsLowStock():
		return StockStatusLow
	case p.IsOverstock():
		return StockStatusOverstock
	default:
		return StockStatusNormal
	}
}

// StockValue valor del stock proyectado: CurrentStock * UnitPrice.
func (p *Product) StockValue() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(p.CurrentStock))
}
