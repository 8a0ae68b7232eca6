package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Reconciler lo que el job necesita del motor.
type Reconciler interface {
	Reconcile(ctx context.Context, productID string) (inventory.ReconcileResult, error)
	ReconcileAll(ctx context.Context) ([]inventory.ReconcileResult, error)
}

// ReconcileJob corrige divergencias entre products.current_stock y el log.
type ReconcileJob struct {
	engine Reconciler
	log    *logger.Logger
	clock  func() time.Time
}

// NewReconcileJob construye el handler.
func NewReconcileJob(engine Reconciler, log *logger.Logger) *ReconcileJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileJob{
		engine: engine,
		log:    log.Named("jobs"),
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Handle procesa TaskLedgerReconcile. Payload inválido o producto inexistente no se reintentan;
// un LockTimeout sí.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.engine == nil {
		return errors.New("ledger reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
	}

	start := j.clock()
	if payload.ProductID != "" {
		res, err := j.engine.Reconcile(ctx, payload.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			j.log.Warn().Err(err).Str("product_id", payload.ProductID).Msg("reconciliación descartada")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err != nil {
			return err
		}
		j.log.Info().
			Str("product_id", res.ProductID).
			Bool("corrected", res.Corrected).
			Int64("delta", res.Delta).
			Dur("took", j.clock().Sub(start)).
			Msg("reconciliación de producto")
		return nil
	}

	results, err := j.engine.ReconcileAll(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("reconciliación completa fallida")
		return err
	}
	corrected := 0
	for _, r := range results {
		if r.Corrected {
			corrected++
		}
	}
	ev := j.log.Info().
		Int("products", len(results)).
		Int("corrected", corrected).
		Dur("took", j.clock().Sub(start))
	if !payload.ScheduledFor.IsZero() {
		ev = ev.Time("scheduled_for", payload.ScheduledFor)
	}
	ev.Msg("reconciliación del catálogo")
	return nil
}
