package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// YearMonth mes calendario (UTC).
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth interpreta "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("mes inválido %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf mes (UTC) al que pertenece t.
func YearMonthOf(t time.Time) YearMonth {
	u := t.UTC()
	return YearMonth{Year: u.Year(), Month: u.Month()}
}

// Start primer instante del mes.
func (ym YearMonth) Start() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End primer instante del mes siguiente (exclusivo).
func (ym YearMonth) End() time.Time {
	return ym.Start().AddDate(0, 1, 0)
}

// Before indica si ym es anterior a other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

type summaryKey struct {
	productID string
	month     YearMonth
}

// MonthlySummaries agrupa los movimientos por (producto, mes) y suma IN, OUT y ADJUSTMENT.
// names resuelve el nombre del producto; from/to (inclusivos) son opcionales.
// Orden: (año, mes) descendente, luego nombre de producto y ID ascendentes.
func MonthlySummaries(movements []*entity.StockMovement, names map[string]string, from, to *YearMonth) []entity.MonthlySummary {
	groups := make(map[summaryKey]*entity.MonthlySummary)
	for _, m := range movements {
		ym := YearMonthOf(m.MovementDate)
		if from != nil && ym.Before(*from) {
			continue
		}
		if to != nil && to.Before(ym) {
			continue
		}
		key := summaryKey{productID: m.ProductID, month: ym}
		s, ok := groups[key]
		if !ok {
			s = &entity.MonthlySummary{
				ProductID:   m.ProductID,
				ProductName: names[m.ProductID],
				Year:        ym.Year,
				Month:       int(ym.Month),
			}
			groups[key] = s
		}
		switch m.Type {
		case entity.MovementTypeIN:
			s.TotalIn += m.Quantity
		case entity.MovementTypeOUT:
			s.TotalOut += m.Quantity
		case entity.MovementTypeADJUSTMENT:
			s.TotalAdjustments += m.Quantity
		}
		s.MovementCount++
	}

	out := make([]entity.MonthlySummary, 0, len(groups))
	for _, s := range groups {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.ProductID < b.ProductID
	})
	return out
}
