package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Construcción de consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestBuildMovementQuery_SinFiltros(t *testing.T) {
	query, args := buildMovementQuery(repository.MovementFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.True(t, strings.HasSuffix(query, "ORDER BY seq"))
	assert.Empty(t, args)
}

func TestBuildMovementQuery_TodosLosFiltros(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 1, 0)
	query, args := buildMovementQuery(repository.MovementFilter{
		ProductID:     "p1",
		AfterSequence: 42,
		Since:         &since,
		Until:         &until,
		Limit:         500,
	})

	assert.Contains(t, query, "WHERE product_id = $1 AND seq > $2 AND movement_date >= $3 AND movement_date < $4")
	assert.True(t, strings.HasSuffix(query, "ORDER BY seq LIMIT $5"))
	assert.Equal(t, []any{"p1", int64(42), since, until, 500}, args)
}

func TestBuildMovementQuery_PosicionesCompactas(t *testing.T) {
	until := time.Now()
	query, args := buildMovementQuery(repository.MovementFilter{Until: &until, Limit: 10})
	assert.Contains(t, query, "WHERE movement_date < $1")
	assert.Contains(t, query, "LIMIT $2")
	assert.Len(t, args, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Traducción de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestMapError(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}
	assert.ErrorIs(t, mapError("op", wrap("55P03")), domain.ErrLockTimeout)
	stock := &pgconn.PgError{Code: "23514", ConstraintName: "products_current_stock_non_negative"}
	assert.ErrorIs(t, mapError("op", stock), domain.ErrInsufficientStock)
	thresholds := &pgconn.PgError{Code: "23514", ConstraintName: "products_stock_thresholds"}
	assert.ErrorIs(t, mapError("op", thresholds), domain.ErrStorageFailure, "otros CHECK no son stock insuficiente")
	assert.ErrorIs(t, mapError("op", wrap("23503")), domain.ErrProductNotFound)

	cause := errors.New("conexión rechazada")
	err := mapError("op", cause)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.ErrorIs(t, err, cause, "la causa se conserva")

	assert.NoError(t, mapError("op", nil))
}

func TestLockTimeoutSetting(t *testing.T) {
	assert.Equal(t, "1500ms", lockTimeoutSetting(1500*time.Millisecond))
	assert.Equal(t, "0", lockTimeoutSetting(0))
}

func TestRedactDSN(t *testing.T) {
	out := redactDSN("postgres://app:secreto@db:5432/inventory_db?sslmode=disable")
	assert.NotContains(t, out, "secreto")
	assert.Contains(t, out, "db:5432")
}
