// Package memory implementa los puertos del ledger en memoria.
//
// El Store no es transaccional en general: cada operación de repositorio es atómica por sí misma.
// Run solo deshace los movimientos agregados cuando fn falla, de modo que un registro rechazado
// no queda en el log; la proyección no se revierte y la reconciliación del motor la corrige.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Store catálogo de productos, log de movimientos y proyección en memoria.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	movements map[string][]*entity.StockMovement // por producto, en orden de inserción
	seq       int64
	lastAt    map[string]time.Time
	now       func() time.Time
}

// NewStore construye un store vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		movements: make(map[string][]*entity.StockMovement),
		lastAt:    make(map[string]time.Time),
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// PutProduct registra o actualiza un producto del catálogo. Lo usa quien embebe el ledger
// en lugar de la capa CRUD; el stock proyectado existente se conserva.
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.products[p.ID]; ok {
		p.CurrentStock = prev.CurrentStock
	} else {
		p.CurrentStock = 0
	}
	s.products[p.ID] = &p
}

// Products adaptador ProductRepository.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Movements adaptador StockMovementRepository.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Stocks adaptador StockRepository.
func (s *Store) Stocks() *StockRepo { return &StockRepo{s: s} }

// Run ejecuta fn con los repositorios del store. Si fn devuelve error, descarta los movimientos
// que agregó.
func (s *Store) Run(ctx context.Context, fn func(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
) error) error {
	movs := &txMovements{MovementRepo: s.Movements()}
	err := fn(ctx, movs, s.Stocks(), s.Products())
	if err != nil {
		s.discard(movs.appended)
	}
	return err
}

// txMovements registra los appends hechos dentro de Run.
type txMovements struct {
	*MovementRepo
	appended []entity.StockMovement
}

func (t *txMovements) Append(ctx context.Context, m *entity.StockMovement) error {
	if err := t.MovementRepo.Append(ctx, m); err != nil {
		return err
	}
	t.appended = append(t.appended, *m)
	return nil
}

func (s *Store) discard(appended []entity.StockMovement) {
	if len(appended) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range appended {
		movs := s.movements[a.ProductID]
		for i, m := range movs {
			if m.ID == a.ID {
				s.movements[a.ProductID] = append(movs[:i:i], movs[i+1:]...)
				break
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Productos
// ──────────────────────────────────────────────────────────────────────────────

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo lectura del catálogo en memoria.
type ProductRepo struct{ s *Store }

// GetByID devuelve una copia del producto o nil si no existe.
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// GetForUpdate en memoria equivale a GetByID; la exclusión la da el bloqueo por producto.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

// ListAll copia consistente de todos los productos, ordenados por ID.
func (r *ProductRepo) ListAll(_ context.Context) ([]*entity.Product, error) {
	r.s.mu.RLock()
	list := make([]*entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		cp := *p
		list = append(list, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Delete elimina el producto del catálogo.
func (r *ProductRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.products, id)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Log de movimientos
// ──────────────────────────────────────────────────────────────────────────────

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

// MovementRepo log append-only en memoria.
type MovementRepo struct{ s *Store }

// Append asigna ID, Sequence y un MovementDate estrictamente creciente por producto.
func (r *MovementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[m.ProductID]; !ok {
		return domain.ErrProductNotFound
	}
	at := r.s.now().UTC()
	if last, ok := r.s.lastAt[m.ProductID]; ok && !at.After(last) {
		at = last.Add(time.Microsecond)
	}
	r.s.seq++
	m.ID = uuid.NewString()
	m.Sequence = r.s.seq
	m.MovementDate = at
	r.s.lastAt[m.ProductID] = at

	cp := *m
	r.s.movements[m.ProductID] = append(r.s.movements[m.ProductID], &cp)
	return nil
}

// ListByProduct movimientos del producto en orden ascendente.
func (r *MovementRepo) ListByProduct(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if filter.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	return r.List(ctx, filter)
}

// List movimientos filtrados en orden de Sequence. Dentro de un producto coincide con el orden
// (MovementDate, Sequence) porque ambos crecen juntos.
func (r *MovementRepo) List(_ context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	var source [][]*entity.StockMovement
	if filter.ProductID != "" {
		source = append(source, r.s.movements[filter.ProductID])
	} else {
		for _, movs := range r.s.movements {
			source = append(source, movs)
		}
	}
	var list []*entity.StockMovement
	for _, movs := range source {
		for _, m := range movs {
			if !matches(m, filter) {
				continue
			}
			cp := *m
			list = append(list, &cp)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func matches(m *entity.StockMovement, f repository.MovementFilter) bool {
	if m.Sequence <= f.AfterSequence {
		return false
	}
	if f.Since != nil && m.MovementDate.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !m.MovementDate.Before(*f.Until) {
		return false
	}
	return true
}

// DeleteByProduct purga el historial del producto.
func (r *MovementRepo) DeleteByProduct(_ context.Context, productID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.movements[productID]))
	delete(r.s.movements, productID)
	delete(r.s.lastAt, productID)
	return n, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Proyección
// ──────────────────────────────────────────────────────────────────────────────

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo stock cacheado en el propio producto.
type StockRepo struct{ s *Store }

// Get stock cacheado.
func (r *StockRepo) Get(_ context.Context, productID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return p.CurrentStock, nil
}

// Apply suma delta al cache.
func (r *StockRepo) Apply(_ context.Context, productID string, delta int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	p.CurrentStock += delta
	p.UpdatedAt = r.s.now()
	return p.CurrentStock, nil
}

// Set sobrescribe el cache.
func (r *StockRepo) Set(_ context.Context, productID string, quantity int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.CurrentStock = quantity
	p.UpdatedAt = r.s.now()
	return nil
}
