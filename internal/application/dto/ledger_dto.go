package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SubmitMovementRequest body para POST /api/ledger/movements.
type SubmitMovementRequest struct {
	ProductID       string           `json:"product_id"`
	Type            string           `json:"type"`
	Quantity        int64            `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"` // vacío = precio del producto
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedBy       string           `json:"created_by,omitempty"`
}

// ToInput convierte el body en la entrada del motor.
func (r SubmitMovementRequest) ToInput() inventory.SubmitMovementInput {
	return inventory.SubmitMovementInput{
		ProductID:       r.ProductID,
		Type:            r.Type,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		CreatedBy:       r.CreatedBy,
	}
}

// StockUpdateRequest body para PUT /api/ledger/products/:id/stock.
// Quantity con signo: positivo registra un IN, negativo un OUT por el valor absoluto.
type StockUpdateRequest struct {
	Quantity        int64  `json:"quantity"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreatedBy       string `json:"created_by,omitempty"`
}

// ToInput convierte el cambio con signo en un movimiento al precio del producto.
// Cero produce un IN de cantidad cero, que el motor rechaza.
func (r StockUpdateRequest) ToInput(productID string) inventory.SubmitMovementInput {
	in := inventory.SubmitMovementInput{
		ProductID:       productID,
		Type:            entity.MovementTypeIN,
		Quantity:        r.Quantity,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		CreatedBy:       r.CreatedBy,
	}
	if r.Quantity < 0 {
		in.Type = entity.MovementTypeOUT
		in.Quantity = -r.Quantity
	}
	return in
}

// StockUpdateResponse resultado de un cambio de stock con signo.
type StockUpdateResponse struct {
	MovementID string `json:"movement_id"`
	OldStock   int64  `json:"old_stock"`
	NewStock   int64  `json:"new_stock"`
	Change     int64  `json:"change"`
}

// MovementDTO movimiento del log en respuestas.
type MovementDTO struct {
	ID              string          `json:"id"`
	Sequence        int64           `json:"sequence"`
	ProductID       string          `json:"product_id"`
	Type            string          `json:"type"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	MovementDate    time.Time       `json:"movement_date"`
	CreatedBy       string          `json:"created_by"`
}

// MovementFromEntity mapea un movimiento del dominio.
func MovementFromEntity(m *entity.StockMovement) MovementDTO {
	return MovementDTO{
		ID:              m.ID,
		Sequence:        m.Sequence,
		ProductID:       m.ProductID,
		Type:            m.Type,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
		MovementDate:    m.MovementDate,
		CreatedBy:       m.CreatedBy,
	}
}

// MovementListResponse página del historial.
type MovementListResponse struct {
	Movements []MovementDTO `json:"movements"`
	CursorResponse
}

// StockResponse stock proyectado de un producto.
type StockResponse struct {
	ProductID    string `json:"product_id"`
	CurrentStock int64  `json:"current_stock"`
	MinimumStock int64  `json:"minimum_stock"`
	MaximumStock int64  `json:"maximum_stock"`
	Status       string `json:"status"` // LOW_STOCK | OVERSTOCK | NORMAL
}

// StockValueResponse valor del stock de un producto.
type StockValueResponse struct {
	ProductID    string          `json:"product_id"`
	CurrentStock int64           `json:"current_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	StockValue   decimal.Decimal `json:"stock_value"`
}

// LowStockAlertDTO alerta de stock bajo.
type LowStockAlertDTO struct {
	ProductID          string          `json:"product_id"`
	ProductCode        string          `json:"product_code"`
	ProductName        string          `json:"product_name"`
	CurrentStock       int64           `json:"current_stock"`
	MinimumStock       int64           `json:"minimum_stock"`
	ShortageQuantity   int64           `json:"shortage_quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	RequiredInvestment decimal.Decimal `json:"required_investment"` // ShortageQuantity * UnitPrice
}

// MonthlySummaryDTO totales de un producto en un mes.
type MonthlySummaryDTO struct {
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name"`
	Year             int    `json:"year"`
	Month            int    `json:"month"`
	TotalIn          int64  `json:"total_in"`
	TotalOut         int64  `json:"total_out"`
	TotalAdjustments int64  `json:"total_adjustments"`
	MovementCount    int64  `json:"movement_count"`
}

// StockSummaryDTO resumen agregado del inventario.
type StockSummaryDTO struct {
	TotalProducts     int             `json:"total_products"`
	ActiveProducts    int             `json:"active_products"`
	LowStockProducts  int             `json:"low_stock_products"`
	OverstockProducts int             `json:"overstock_products"`
	TotalStockValue   decimal.Decimal `json:"total_stock_value"`
	CategoriesCount   int             `json:"categories_count"`
	SuppliersCount    int             `json:"suppliers_count"`
}

// ReconcileResultDTO resultado de reconciliar un producto.
type ReconcileResultDTO struct {
	ProductID  string `json:"product_id"`
	Corrected  bool   `json:"corrected"`
	Delta      int64  `json:"delta"`
	Cached     int64  `json:"cached"`
	Recomputed int64  `json:"recomputed"`
}

// ReconcileFromResult mapea el resultado del motor.
func ReconcileFromResult(r inventory.ReconcileResult) ReconcileResultDTO {
	return ReconcileResultDTO{
		ProductID:  r.ProductID,
		Corrected:  r.Corrected,
		Delta:      r.Delta,
		Cached:     r.Cached,
		Recomputed: r.Recomputed,
	}
}
