package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

type fakeReconciler struct {
	one    map[string]inventory.ReconcileResult
	oneErr error
	all    []inventory.ReconcileResult
	allErr error

	calledOne []string
	calledAll int
}

func (f *fakeReconciler) Reconcile(_ context.Context, productID string) (inventory.ReconcileResult, error) {
	f.calledOne = append(f.calledOne, productID)
	if f.oneErr != nil {
		return inventory.ReconcileResult{}, f.oneErr
	}
	return f.one[productID], nil
}

func (f *fakeReconciler) ReconcileAll(context.Context) ([]inventory.ReconcileResult, error) {
	f.calledAll++
	return f.all, f.allErr
}

func task(t *testing.T, productID string) *asynq.Task {
	t.Helper()
	tk, err := NewReconcileTask(productID, time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("COT", -5*3600)))
	require.NoError(t, err)
	return tk
}

// ──────────────────────────────────────────────────────────────────────────────
// Tarea
// ──────────────────────────────────────────────────────────────────────────────

func TestNewReconcileTask_Payload(t *testing.T) {
	tk := task(t, "p1")
	assert.Equal(t, TaskLedgerReconcile, tk.Type())

	var payload ReconcilePayload
	require.NoError(t, json.Unmarshal(tk.Payload(), &payload))
	assert.Equal(t, "p1", payload.ProductID)
	assert.Equal(t, time.UTC, payload.ScheduledFor.Location())
	assert.Equal(t, 15, payload.ScheduledFor.Hour())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(task(t, "").Payload(), &raw))
	assert.NotContains(t, raw, "product_id", "sin producto = catálogo completo")
}

// ──────────────────────────────────────────────────────────────────────────────
// Handle
// ──────────────────────────────────────────────────────────────────────────────

func TestHandle_UnProducto(t *testing.T) {
	f := &fakeReconciler{one: map[string]inventory.ReconcileResult{
		"p1": {ProductID: "p1", Corrected: true, Delta: 3},
	}}
	job := NewReconcileJob(f, nil)

	require.NoError(t, job.Handle(context.Background(), task(t, "p1")))
	assert.Equal(t, []string{"p1"}, f.calledOne)
	assert.Zero(t, f.calledAll)
}

func TestHandle_CatalogoCompleto(t *testing.T) {
	f := &fakeReconciler{all: []inventory.ReconcileResult{{ProductID: "p1"}, {ProductID: "p2", Corrected: true}}}
	job := NewReconcileJob(f, nil)

	require.NoError(t, job.Handle(context.Background(), task(t, "")))
	assert.Equal(t, 1, f.calledAll)
	assert.Empty(t, f.calledOne)
}

func TestHandle_NoReintentables(t *testing.T) {
	job := NewReconcileJob(&fakeReconciler{}, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerReconcile, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry), "payload inválido")

	for _, cause := range []error{domain.ErrProductNotFound, domain.ErrInvalidInput} {
		job := NewReconcileJob(&fakeReconciler{oneErr: fmt.Errorf("envuelto: %w", cause)}, nil)
		err := job.Handle(context.Background(), task(t, "zz"))
		assert.True(t, errors.Is(err, asynq.SkipRetry), cause.Error())
	}
}

func TestHandle_Reintentables(t *testing.T) {
	job := NewReconcileJob(&fakeReconciler{oneErr: domain.ErrLockTimeout}, nil)
	err := job.Handle(context.Background(), task(t, "p1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	storage := domain.StorageError("listar productos", errors.New("conexión cerrada"))
	job = NewReconcileJob(&fakeReconciler{allErr: storage}, nil)
	err = job.Handle(context.Background(), task(t, ""))
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandle_SinMotor(t *testing.T) {
	var job *ReconcileJob
	assert.Error(t, job.Handle(context.Background(), task(t, "p1")))
}
