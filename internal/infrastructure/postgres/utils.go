package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE que el ledger traduce a errores de dominio.
const (
	codeLockNotAvailable = "55P03" // lock_timeout agotado esperando la fila
	codeCheckViolation   = "23514"
	codeForeignKey       = "23503" // movimiento de un producto inexistente

	constraintNonNegativeStock = "products_current_stock_non_negative"
)

func pgError(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// mapError traduce un error de PostgreSQL a la taxonomía del ledger.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	code, constraint := pgError(err)
	switch {
	case code == codeLockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrLockTimeout, op)
	case code == codeCheckViolation && constraint == constraintNonNegativeStock:
		return fmt.Errorf("%w: %s", domain.ErrInsufficientStock, op)
	case code == codeForeignKey:
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, op)
	}
	return domain.StorageError(op, err)
}
