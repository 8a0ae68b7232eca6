// Package inventory contiene el motor del ledger de stock: registro de movimientos bajo
// bloqueo por producto, proyección incremental, reconciliación y consultas agregadas.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Valores por defecto del motor.
const (
	DefaultLockTimeout          = 2 * time.Second
	DefaultReconcileConcurrency = 4
)

// Config parámetros del motor.
type Config struct {
	LockTimeout          time.Duration // espera máxima por el bloqueo de un producto
	ReconcileConcurrency int           // productos reconciliados en paralelo por ReconcileAll
}

// EngineDeps dependencias del motor. Products y Movements se usan para lecturas fuera de transacción.
type EngineDeps struct {
	Tx        TxRunner
	Products  repository.ProductRepository
	Movements repository.StockMovementRepository
	Locker    Locker
	Log       *logger.Logger
	// OnDrift recibe cada divergencia corregida por la reconciliación (opcional).
	OnDrift func(*domain.ProjectionDriftError)
	// OnSuspect se invoca cuando un producto queda pendiente de reconciliar (opcional).
	OnSuspect func(productID string)
	Config    Config
}

// Engine motor del ledger de stock.
type Engine struct {
	tx        TxRunner
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	locker    Locker
	log       *logger.Logger
	onDrift   func(*domain.ProjectionDriftError)
	onSuspect func(productID string)
	cfg       Config

	suspects sync.Map // productID -> struct{}: append confirmado sin proyección aplicada
	flight   singleflight.Group
}

// NewEngine construye el motor.
func NewEngine(deps EngineDeps) *Engine {
	cfg := deps.Config
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.ReconcileConcurrency <= 0 {
		cfg.ReconcileConcurrency = DefaultReconcileConcurrency
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		tx:        deps.Tx,
		products:  deps.Products,
		movements: deps.Movements,
		locker:    deps.Locker,
		log:       log.Named("ledger"),
		onDrift:   deps.OnDrift,
		onSuspect: deps.OnSuspect,
		cfg:       cfg,
	}
}

// SubmitMovementInput entrada para registrar un movimiento.
// UnitPrice nil toma el precio unitario del producto; CreatedBy vacío registra DefaultActor.
type SubmitMovementInput struct {
	ProductID       string
	Type            string
	Quantity        int64
	UnitPrice       *decimal.Decimal
	ReferenceNumber string
	Notes           string
	CreatedBy       string
}

func (in SubmitMovementInput) validate() error {
	if strings.TrimSpace(in.ProductID) == "" {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if !entity.IsValidMovementType(in.Type) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidMovementType, in.Type)
	}
	if in.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit_price negativo", domain.ErrInvalidInput)
	}
	return nil
}

func (in SubmitMovementInput) movement(p *entity.Product) *entity.StockMovement {
	price := p.UnitPrice
	if in.UnitPrice != nil {
		price = *in.UnitPrice
	}
	actor := strings.TrimSpace(in.CreatedBy)
	if actor == "" {
		actor = entity.DefaultActor
	}
	return &entity.StockMovement{
		ProductID:       in.ProductID,
		Type:            in.Type,
		Quantity:        in.Quantity,
		UnitPrice:       price,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		CreatedBy:       actor,
	}
}

// SubmitMovement valida, bloquea el producto y, en una transacción, agrega el movimiento al log
// y ajusta la proyección. Devuelve el ID asignado al movimiento.
//
// El append es el punto de confirmación: una cancelación previa no deja rastro y una posterior
// se ignora. Si la transacción falla después del append, el movimiento no se confirma y el
// llamador puede reintentar; el producto queda marcado y la siguiente lectura verifica su cache.
func (e *Engine) SubmitMovement(ctx context.Context, in SubmitMovementInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	unlock, err := e.lockProduct(ctx, in.ProductID, e.cfg.LockTimeout)
	if err != nil {
		return "", err
	}
	defer unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if e.isSuspect(in.ProductID) {
		if _, err := e.reconcileLocked(ctx, in.ProductID); err != nil {
			return "", err
		}
	}

	var (
		mov      *entity.StockMovement
		appended bool
	)
	err = e.tx.Run(context.WithoutCancel(ctx), func(
		ctx context.Context,
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		productRepo repository.ProductRepository,
	) error {
		product, err := productRepo.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return domain.StorageError("cargar producto", err)
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		mov = in.movement(product)
		if product.CurrentStock+mov.SignedQuantity() < 0 {
			return fmt.Errorf("%w: disponible %d, solicitado %d", domain.ErrInsufficientStock, product.CurrentStock, mov.Quantity)
		}

		if err := movRepo.Append(ctx, mov); err != nil {
			return domain.StorageError("agregar movimiento", err)
		}
		appended = true

		if _, err := stockRepo.Apply(ctx, in.ProductID, mov.SignedQuantity()); err != nil {
			return domain.StorageError("aplicar proyección", err)
		}
		return nil
	})
	if err != nil {
		if appended {
			e.suspects.Store(in.ProductID, struct{}{})
			e.log.Error().Err(err).Str("product_id", in.ProductID).Msg("movimiento no confirmado tras append; producto marcado para reconciliar")
			e.notifySuspect(in.ProductID)
			return "", domain.StorageError("registrar movimiento", err)
		}
		return "", err
	}

	e.log.Debug().
		Str("product_id", in.ProductID).
		Str("movement_id", mov.ID).
		Str("type", mov.Type).
		Int64("quantity", mov.Quantity).
		Msg("movimiento registrado")
	return mov.ID, nil
}

// lockProduct toma el bloqueo del producto esperando como máximo wait.
func (e *Engine) lockProduct(ctx context.Context, productID string, wait time.Duration) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	unlock, err := e.locker.Lock(lockCtx, productLockKey(productID))
	if err == nil {
		return unlock, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e.log.Debug().Str("product_id", productID).Dur("timeout", wait).Msg("bloqueo no obtenido")
		return nil, fmt.Errorf("%w: producto %s", domain.ErrLockTimeout, productID)
	}
	return nil, domain.StorageError("bloquear producto", err)
}

func productLockKey(productID string) string {
	return "ledger:product:" + productID + ":lock"
}

func (e *Engine) notifySuspect(productID string) {
	if e.onSuspect != nil {
		e.onSuspect(productID)
	}
}

func (e *Engine) isSuspect(productID string) bool {
	_, ok := e.suspects.Load(productID)
	return ok
}

// SuspectProducts productos pendientes de reconciliar.
func (e *Engine) SuspectProducts() []string {
	var ids []string
	e.suspects.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	return ids
}
