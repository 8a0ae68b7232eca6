package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio del ledger (sin dependencias externas).
var (
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInvalidQuantity     = errors.New("la cantidad debe ser mayor que cero")
	ErrInvalidMovementType = errors.New("tipo de movimiento inválido")
	ErrProductNotFound     = errors.New("producto no encontrado")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrLockTimeout         = errors.New("tiempo de espera agotado al bloquear el producto")
	ErrProjectionDrift     = errors.New("la proyección de stock difiere del log de movimientos")
	ErrStorageFailure      = errors.New("fallo de almacenamiento")
)

// ProjectionDriftError detalle de una divergencia detectada entre el cache y el log.
// errors.Is(err, ErrProjectionDrift) es verdadero.
type ProjectionDriftError struct {
	ProductID  string
	Cached     int64
	Recomputed int64
}

func (e *ProjectionDriftError) Error() string {
	return fmt.Sprintf("%s: producto %s cache=%d log=%d", ErrProjectionDrift.Error(), e.ProductID, e.Cached, e.Recomputed)
}

func (e *ProjectionDriftError) Unwrap() error { return ErrProjectionDrift }

// Delta diferencia que aplica la reconciliación (log - cache).
func (e *ProjectionDriftError) Delta() int64 { return e.Recomputed - e.Cached }

// IsLedgerError indica si err ya pertenece a la taxonomía del ledger.
func IsLedgerError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrInvalidQuantity, ErrInvalidMovementType, ErrProductNotFound,
		ErrInsufficientStock, ErrLockTimeout, ErrProjectionDrift, ErrStorageFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// StorageError envuelve un error de persistencia como ErrStorageFailure conservando la causa.
// Los errores que ya son del dominio se devuelven sin cambios.
func StorageError(op string, err error) error {
	if err == nil || IsLedgerError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
