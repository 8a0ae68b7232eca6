package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault cola por defecto de los jobs del ledger.
	QueueDefault = "default"
	// TaskLedgerReconcile recalcula la proyección de stock desde el log.
	TaskLedgerReconcile = "ledger:reconcile"
)

// ReconcilePayload ProductID vacío reconcilia todo el catálogo.
type ReconcilePayload struct {
	ProductID    string    `json:"product_id,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewReconcileTask construye la tarea de reconciliación.
func NewReconcileTask(productID string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{ProductID: productID, ScheduledFor: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, body, asynq.Queue(QueueDefault)), nil
}
