package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LowStockAlerts genera las alertas para productos activos con stock <= mínimo.
// Orden: mayor faltante primero; empate por ID de producto ascendente.
func LowStockAlerts(products []*entity.Product) []entity.LowStockAlert {
	alerts := make([]entity.LowStockAlert, 0)
	for _, p := range products {
		if p == nil || !p.IsActive || !p.IsLowStock() {
			continue
		}
		shortage := p.MinimumStock - p.CurrentStock
		alerts = append(alerts, entity.LowStockAlert{
			ProductID:          p.ID,
			ProductCode:        p.Code,
			ProductName:        p.Name,
			CurrentStock:       p.CurrentStock,
			MinimumStock:       p.MinimumStock,
			ShortageQuantity:   shortage,
			UnitPrice:          p.UnitPrice,
			RequiredInvestment: p.UnitPrice.Mul(decimal.NewFromInt(shortage)),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.ShortageQuantity != b.ShortageQuantity {
			return a.ShortageQuantity > b.ShortageQuantity
		}
		return a.ProductID < b.ProductID
	})
	return alerts
}

// Summarize resumen agregado del inventario. Los conteos de stock bajo, sobrestock,
// categorías y proveedores consideran solo productos activos; el valor total suma todos.
func Summarize(products []*entity.Product) entity.StockSummary {
	summary := entity.StockSummary{TotalStockValue: decimal.Zero}
	categories := make(map[string]struct{})
	suppliers := make(map[string]struct{})
	for _, p := range products {
		if p == nil {
			continue
		}
		summary.TotalProducts++
		summary.TotalStockValue = summary.TotalStockValue.Add(p.StockValue())
		if !p.IsActive {
			continue
		}
		summary.ActiveProducts++
		if p.IsLowStock() {
			summary.LowStockProducts++
		}
		if p.IsOverstock() {
			summary.OverstockProducts++
		}
		if p.CategoryID != nil {
			categories[*p.CategoryID] = struct{}{}
		}
		if p.SupplierID != nil {
			suppliers[*p.SupplierID] = struct{}{}
		}
	}
	summary.CategoriesCount = len(categories)
	summary.SuppliersCount = len(suppliers)
	return summary
}
