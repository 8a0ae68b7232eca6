// Package ledger contiene la lógica pura del ledger de stock (servicio de dominio):
// proyección del stock como fold del log, alertas de stock bajo y resúmenes mensuales.
// No tiene dependencias de infraestructura ni estado.
package ledger

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// Fold recalcula el stock a partir de los movimientos:
// StockActual = Σ IN - Σ OUT + Σ ADJUSTMENT.
func Fold(movements []*entity.StockMovement) int64 {
	var total int64
	for _, m := range movements {
		total += m.SignedQuantity()
	}
	return total
}

// FoldFrom continúa un fold parcial (lecturas paginadas del log).
func FoldFrom(acc int64, movements []*entity.StockMovement) int64 {
	return acc + Fold(movements)
}
