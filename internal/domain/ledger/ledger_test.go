package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

func mov(productID, typ string, qty int64, at time.Time) *entity.StockMovement {
	return &entity.StockMovement{ProductID: productID, Type: typ, Quantity: qty, MovementDate: at}
}

func ptr(s string) *string { return &s }

// ──────────────────────────────────────────────────────────────────────────────
// Fold
// ──────────────────────────────────────────────────────────────────────────────

func TestFold_EntradaSalidaAjuste(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	movs := []*entity.StockMovement{
		mov("p1", entity.MovementTypeIN, 20, at),
		mov("p1", entity.MovementTypeOUT, 5, at),
		mov("p1", entity.MovementTypeOUT, 7, at),
		mov("p1", entity.MovementTypeADJUSTMENT, 3, at),
	}
	assert.Equal(t, int64(11), ledger.Fold(movs))
	assert.Equal(t, int64(0), ledger.Fold(nil), "log vacío proyecta cero")
}

func TestFoldFrom_PaginadoIgualAlCompleto(t *testing.T) {
	at := time.Now()
	movs := []*entity.StockMovement{
		mov("p1", entity.MovementTypeIN, 50, at),
		mov("p1", entity.MovementTypeOUT, 10, at),
		mov("p1", entity.MovementTypeADJUSTMENT, 4, at),
		mov("p1", entity.MovementTypeOUT, 1, at),
	}
	acc := ledger.FoldFrom(0, movs[:2])
	acc = ledger.FoldFrom(acc, movs[2:])
	assert.Equal(t, ledger.Fold(movs), acc)
}

// ──────────────────────────────────────────────────────────────────────────────
// Alertas de stock bajo
// ──────────────────────────────────────────────────────────────────────────────

func TestLowStockAlerts_FiltraYOrdena(t *testing.T) {
	products := []*entity.Product{
		{ID: "b", Name: "B", IsActive: true, CurrentStock: 8, MinimumStock: 10, UnitPrice: decimal.NewFromInt(3)},
		{ID: "a", Name: "A", IsActive: true, CurrentStock: 8, MinimumStock: 10, UnitPrice: decimal.NewFromInt(1)},
		{ID: "c", Name: "C", IsActive: true, CurrentStock: 0, MinimumStock: 10, UnitPrice: decimal.NewFromInt(2)},
		{ID: "d", Name: "D", IsActive: false, CurrentStock: 0, MinimumStock: 10},
		{ID: "e", Name: "E", IsActive: true, CurrentStock: 11, MinimumStock: 10},
		{ID: "f", Name: "F", IsActive: true, CurrentStock: 10, MinimumStock: 10, UnitPrice: decimal.NewFromInt(5)},
	}

	alerts := ledger.LowStockAlerts(products)
	require.Len(t, alerts, 4, "inactivos y stock > mínimo no generan alerta")

	ids := []string{alerts[0].ProductID, alerts[1].ProductID, alerts[2].ProductID, alerts[3].ProductID}
	assert.Equal(t, []string{"c", "a", "b", "f"}, ids, "faltante descendente, ID ascendente en empates")

	assert.Equal(t, int64(10), alerts[0].ShortageQuantity)
	assert.True(t, decimal.NewFromInt(20).Equal(alerts[0].RequiredInvestment))
	assert.Equal(t, int64(0), alerts[3].ShortageQuantity, "stock igual al mínimo alerta con faltante cero")
}

func TestLowStockAlerts_SinProductos(t *testing.T) {
	alerts := ledger.LowStockAlerts(nil)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestSummarize(t *testing.T) {
	products := []*entity.Product{
		{ID: "1", IsActive: true, CurrentStock: 5, MinimumStock: 10, MaximumStock: 100, UnitPrice: decimal.NewFromInt(2), CategoryID: ptr("c1"), SupplierID: ptr("s1")},
		{ID: "2", IsActive: true, CurrentStock: 100, MinimumStock: 10, MaximumStock: 100, UnitPrice: decimal.NewFromInt(1), CategoryID: ptr("c1")},
		{ID: "3", IsActive: true, CurrentStock: 50, MinimumStock: 10, MaximumStock: 100, UnitPrice: decimal.NewFromInt(1), CategoryID: ptr("c2"), SupplierID: ptr("s2")},
		{ID: "4", IsActive: false, CurrentStock: 1, MinimumStock: 10, MaximumStock: 100, UnitPrice: decimal.NewFromInt(10), CategoryID: ptr("c3")},
	}
	s := ledger.Summarize(products)
	assert.Equal(t, 4, s.TotalProducts)
	assert.Equal(t, 3, s.ActiveProducts)
	assert.Equal(t, 1, s.LowStockProducts)
	assert.Equal(t, 1, s.OverstockProducts)
	assert.Equal(t, 2, s.CategoriesCount)
	assert.Equal(t, 2, s.SuppliersCount)
	assert.True(t, decimal.NewFromInt(170).Equal(s.TotalStockValue), "valor total: %s", s.TotalStockValue)
}

// ──────────────────────────────────────────────────────────────────────────────
// Resumen mensual
// ──────────────────────────────────────────────────────────────────────────────

func TestMonthlySummaries_AgrupaYOrdena(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	movs := []*entity.StockMovement{
		mov("p2", entity.MovementTypeIN, 10, jan),
		mov("p1", entity.MovementTypeIN, 20, jan),
		mov("p1", entity.MovementTypeOUT, 5, jan),
		mov("p1", entity.MovementTypeADJUSTMENT, 2, feb),
		mov("p2", entity.MovementTypeOUT, 1, feb),
	}
	names := map[string]string{"p1": "Zapato", "p2": "Arroz"}

	out := ledger.MonthlySummaries(movs, names, nil, nil)
	require.Len(t, out, 4)

	assert.Equal(t, 2, out[0].Month)
	assert.Equal(t, "Arroz", out[0].ProductName)
	assert.Equal(t, "Zapato", out[1].ProductName)
	assert.Equal(t, int64(2), out[1].TotalAdjustments)

	assert.Equal(t, 1, out[2].Month)
	assert.Equal(t, "Arroz", out[2].ProductName)
	jan1 := out[3]
	assert.Equal(t, "p1", jan1.ProductID)
	assert.Equal(t, int64(20), jan1.TotalIn)
	assert.Equal(t, int64(5), jan1.TotalOut)
	assert.Equal(t, int64(2), jan1.MovementCount)
}

func TestMonthlySummaries_RangoInclusivo(t *testing.T) {
	movs := []*entity.StockMovement{
		mov("p1", entity.MovementTypeIN, 1, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)),
		mov("p1", entity.MovementTypeIN, 2, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		mov("p1", entity.MovementTypeIN, 3, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)),
		mov("p1", entity.MovementTypeIN, 4, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	}
	from := ledger.YearMonth{Year: 2024, Month: time.January}
	to := ledger.YearMonth{Year: 2024, Month: time.February}

	out := ledger.MonthlySummaries(movs, nil, &from, &to)
	require.Len(t, out, 2)
	assert.Equal(t, int64(3), out[0].TotalIn)
	assert.Equal(t, int64(2), out[1].TotalIn)
}

func TestParseYearMonth(t *testing.T) {
	ym, err := ledger.ParseYearMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", ym.String())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ym.End())

	_, err = ledger.ParseYearMonth("2024/02")
	assert.Error(t, err)
}
