// Package catalog lee catálogos de productos en CSV y genera el SQL que los carga en PostgreSQL.
//
// Columnas esperadas (con encabezado, en cualquier orden):
// id, code, name, category_id, supplier_id, unit_price, minimum_stock, maximum_stock, is_active.
// Solo id y name son obligatorias. Sin umbrales, un producto toma DefaultMinimumStock y
// DefaultMaximumStock; el máximo debe superar al mínimo.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Codificaciones soportadas para el archivo de entrada.
const (
	CharsetUTF8   = "utf-8"
	CharsetLatin1 = "iso-8859-1"
)

// Umbrales por defecto de un producto sin minimum_stock o maximum_stock.
const (
	DefaultMinimumStock = 10
	DefaultMaximumStock = 1000
)

var required = []string{"id", "name"}

// Load decodifica el CSV. Los catálogos exportados desde hojas de cálculo suelen venir en ISO-8859-1.
func Load(r io.Reader, charset string) ([]entity.Product, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", CharsetUTF8, "utf8":
	case CharsetLatin1, "iso8859-1", "latin1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("charset no soportado: %q", charset)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catálogo vacío")
		}
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("falta la columna %q", name)
		}
	}

	seen := make(map[string]int)
	var products []entity.Product
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		p, err := parseRow(cols, rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("línea %d: id %q repetido (línea %d)", line, p.ID, prev)
		}
		seen[p.ID] = line
		products = append(products, p)
	}
	return products, nil
}

func parseRow(cols map[string]int, rec []string) (entity.Product, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	optional := func(name string) *string {
		if v := get(name); v != "" {
			return &v
		}
		return nil
	}

	p := entity.Product{
		ID:           get("id"),
		Code:         get("code"),
		Name:         get("name"),
		CategoryID:   optional("category_id"),
		SupplierID:   optional("supplier_id"),
		MinimumStock: DefaultMinimumStock,
		MaximumStock: DefaultMaximumStock,
		IsActive:     true,
	}
	if p.ID == "" || p.Name == "" {
		return p, errors.New("id y name son obligatorios")
	}

	if v := get("unit_price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil || price.IsNegative() {
			return p, fmt.Errorf("unit_price inválido: %q", v)
		}
		p.UnitPrice = price
	}
	for _, f := range []struct {
		name string
		dst  *int64
	}{{"minimum_stock", &p.MinimumStock}, {"maximum_stock", &p.MaximumStock}} {
		v := get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%s inválido: %q", f.name, v)
		}
		*f.dst = n
	}
	if p.MaximumStock <= p.MinimumStock {
		return p, fmt.Errorf("maximum_stock (%d) debe ser mayor que minimum_stock (%d)", p.MaximumStock, p.MinimumStock)
	}
	if v := get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("is_active inválido: %q", v)
		}
		p.IsActive = active
	}
	return p, nil
}

// WriteSQL escribe un upsert por producto ordenado por id. current_stock no se toca:
// lo mantiene el ledger.
func WriteSQL(w io.Writer, products []entity.Product) error {
	sorted := make([]entity.Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	b.WriteString("-- Catálogo de productos para el ledger de stock\n")
	b.WriteString("-- Generado por cmd/seed\n\n")
	for _, p := range sorted {
		fmt.Fprintf(&b,
			"INSERT INTO products (id, code, name, category_id, supplier_id, unit_price, minimum_stock, maximum_stock, is_active)\n"+
				"VALUES (%s, %s, %s, %s, %s, %s, %d, %d, %t)\n",
			quote(p.ID), quote(p.Code), quote(p.Name), nullable(p.CategoryID), nullable(p.SupplierID),
			p.UnitPrice.StringFixed(2), p.MinimumStock, p.MaximumStock, p.IsActive)
		b.WriteString("ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name,\n" +
			"    category_id = EXCLUDED.category_id, supplier_id = EXCLUDED.supplier_id, unit_price = EXCLUDED.unit_price,\n" +
			"    minimum_stock = EXCLUDED.minimum_stock, maximum_stock = EXCLUDED.maximum_stock,\n" +
			"    is_active = EXCLUDED.is_active, updated_at = now();\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func nullable(s *string) string {
	if s == nil {
		return "NULL"
	}
	return quote(*s)
}
