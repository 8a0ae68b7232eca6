package entity

import "github.com/shopspring/decimal"

// LowStockAlert alerta derivada (no persistida) para un producto activo en o bajo su mínimo.
type LowStockAlert struct {
	ProductID          string
	ProductCode        string
	ProductName        string
	CurrentStock       int64
	MinimumStock       int64
	ShortageQuantity   int64           // MinimumStock - CurrentStock
	UnitPrice          decimal.Decimal
	RequiredInvestment decimal.Decimal // ShortageQuantity * UnitPrice
}

// MonthlySummary totales de movimientos de un producto en un mes calendario (UTC).
type MonthlySummary struct {
	ProductID        string
	ProductName      string
	Year             int
	Month            int
	TotalIn          int64
	TotalOut         int64
	TotalAdjustments int64
	MovementCount    int64
}

// StockSummary resumen agregado del inventario proyectado.
type StockSummary struct {
	TotalProducts     int
	ActiveProducts    int
	LowStockProducts  int
	OverstockProducts int
	TotalStockValue   decimal.Decimal
	CategoriesCount   int
	SuppliersCount    int
}
