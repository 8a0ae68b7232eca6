package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

const movementColumns = `id::text, seq, product_id, movement_type, quantity, unit_price, reference_number, notes, movement_date, created_by`

// MovementRepo log append-only de movimientos sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append inserta el movimiento. seq lo asigna la secuencia y movement_date se fuerza estrictamente
// creciente por producto (ties con el reloj se resuelven sumando un microsegundo).
func (r *MovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	id := uuid.New().String()
	err := r.q.QueryRow(ctx, `
		INSERT INTO stock_movements (id, product_id, movement_type, quantity, unit_price, reference_number, notes, movement_date, created_by)
		SELECT $1::uuid, $2::text, $3::text, $4::bigint, $5::numeric, $6::text, $7::text,
			GREATEST(
				clock_timestamp(),
				COALESCE((SELECT MAX(movement_date) FROM stock_movements WHERE product_id = $2::text), '-infinity'::timestamptz) + interval '1 microsecond'
			),
			$8::text
		RETURNING seq, movement_date`,
		id, m.ProductID, m.Type, m.Quantity, m.UnitPrice, m.ReferenceNumber, m.Notes, m.CreatedBy,
	).Scan(&m.Sequence, &m.MovementDate)
	if err != nil {
		return mapError("append movement", err)
	}
	m.ID = id
	return nil
}

// ListByProduct movimientos del producto en orden ascendente.
func (r *MovementRepo) ListByProduct(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if filter.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	return r.List(ctx, filter)
}

// List movimientos filtrados en orden de seq.
func (r *MovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	query, args := buildMovementQuery(filter)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list movements", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.Sequence, &m.ProductID, &m.Type, &m.Quantity, &m.UnitPrice,
			&m.ReferenceNumber, &m.Notes, &m.MovementDate, &m.CreatedBy); err != nil {
			return nil, mapError("scan movement", err)
		}
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list movements", err)
	}
	return list, nil
}

// buildMovementQuery arma el SELECT con los filtros presentes y sus placeholders posicionales.
func buildMovementQuery(f repository.MovementFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.AfterSequence > 0 {
		add("seq > $%d", f.AfterSequence)
	}
	if f.Since != nil {
		add("movement_date >= $%d", *f.Since)
	}
	if f.Until != nil {
		add("movement_date < $%d", *f.Until)
	}

	query := "SELECT " + movementColumns + " FROM stock_movements"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// DeleteByProduct purga el historial del producto. Requiere la sesión del ledger (TxRunner).
func (r *MovementRepo) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE product_id = $1`, productID)
	if err != nil {
		return 0, mapError("purge movements", err)
	}
	return tag.RowsAffected(), nil
}
