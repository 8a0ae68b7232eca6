package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LedgerHandler expone el motor del ledger sobre HTTP.
type LedgerHandler struct {
	engine *inventory.Engine
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(engine *inventory.Engine) *LedgerHandler {
	return &LedgerHandler{engine: engine}
}

// writeError traduce la taxonomía del ledger a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, code = fiber.StatusBadRequest, "INVALID_QUANTITY"
	case errors.Is(err, domain.ErrInvalidMovementType):
		status, code = fiber.StatusBadRequest, "INVALID_MOVEMENT_TYPE"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrProductNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrLockTimeout):
		// Reintentable.
		c.Set(fiber.HeaderRetryAfter, "1")
		status, code = fiber.StatusServiceUnavailable, "LOCK_TIMEOUT"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = fiber.StatusRequestTimeout, "CANCELLED"
	case errors.Is(err, domain.ErrStorageFailure):
		status, code = fiber.StatusInternalServerError, "STORAGE_FAILURE"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: message})
}

// SubmitMovement POST /api/ledger/movements
func (h *LedgerHandler) SubmitMovement(c *fiber.Ctx) error {
	var in dto.SubmitMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	id, err := h.engine.SubmitMovement(c.UserContext(), in.ToInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "message": "movimiento registrado"})
}

// ListMovements GET /api/ledger/movements?product_id&since&until&cursor&limit
// since y until en RFC3339; until es exclusivo.
func (h *LedgerHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.CursorRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "cursor o limit inválidos")
	}
	filter := repository.MovementFilter{
		ProductID:     c.Query("product_id"),
		AfterSequence: page.Cursor,
		Limit:         page.Limit,
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &filter.Since}, {"until", &filter.Until}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, p.name+" debe ser RFC3339")
		}
		*p.dst = &t
	}

	result, err := h.engine.ListMovements(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	resp := dto.MovementListResponse{
		Movements:      make([]dto.MovementDTO, 0, len(result.Movements)),
		CursorResponse: dto.CursorResponse{Limit: len(result.Movements), NextCursor: result.NextCursor},
	}
	for _, m := range result.Movements {
		resp.Movements = append(resp.Movements, dto.MovementFromEntity(m))
	}
	return c.JSON(resp)
}

// GetStock GET /api/ledger/products/:id/stock
func (h *LedgerHandler) GetStock(c *fiber.Ctx) error {
	p, err := h.engine.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{
		ProductID:    p.ID,
		CurrentStock: p.CurrentStock,
		MinimumStock: p.MinimumStock,
		MaximumStock: p.MaximumStock,
		Status:       p.StockStatus(),
	})
}

// GetStockValue GET /api/ledger/products/:id/value
func (h *LedgerHandler) GetStockValue(c *fiber.Ctx) error {
	p, err := h.engine.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockValueResponse{
		ProductID:    p.ID,
		CurrentStock: p.CurrentStock,
		UnitPrice:    p.UnitPrice,
		StockValue:   p.StockValue(),
	})
}

// UpdateStock PUT /api/ledger/products/:id/stock
// old_stock y new_stock son lecturas antes y después del movimiento, no una instantánea atómica.
func (h *LedgerHandler) UpdateStock(c *fiber.Ctx) error {
	var in dto.StockUpdateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	ctx := c.UserContext()
	id := c.Params("id")
	before, err := h.engine.GetProduct(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	movementID, err := h.engine.SubmitMovement(ctx, in.ToInput(id))
	if err != nil {
		return writeError(c, err)
	}
	after, err := h.engine.GetCurrentStock(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockUpdateResponse{
		MovementID: movementID,
		OldStock:   before.CurrentStock,
		NewStock:   after,
		Change:     in.Quantity,
	})
}

// InitProduct POST /api/ledger/products/:id/init
func (h *LedgerHandler) InitProduct(c *fiber.Ctx) error {
	if err := h.engine.InitProduct(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PurgeProduct DELETE /api/ledger/products/:id
func (h *LedgerHandler) PurgeProduct(c *fiber.Ctx) error {
	n, err := h.engine.PurgeProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"product_id": c.Params("id"), "purged_movements": n})
}

// LowStockAlerts GET /api/ledger/alerts/low-stock
func (h *LedgerHandler) LowStockAlerts(c *fiber.Ctx) error {
	alerts, err := h.engine.GetLowStockAlerts(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.LowStockAlertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, dto.LowStockAlertDTO{
			ProductID:          a.ProductID,
			ProductCode:        a.ProductCode,
			ProductName:        a.ProductName,
			CurrentStock:       a.CurrentStock,
			MinimumStock:       a.MinimumStock,
			ShortageQuantity:   a.ShortageQuantity,
			UnitPrice:          a.UnitPrice,
			RequiredInvestment: a.RequiredInvestment,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "alerts": out})
}

// MonthlySummary GET /api/ledger/summary/monthly?product_id&from=YYYY-MM&to=YYYY-MM
func (h *LedgerHandler) MonthlySummary(c *fiber.Ctx) error {
	filter := inventory.SummaryFilter{ProductID: c.Query("product_id")}
	for _, p := range []struct {
		name string
		dst  **ledger.YearMonth
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		ym, err := ledger.ParseYearMonth(raw)
		if err != nil {
			return badRequest(c, p.name+" debe tener formato YYYY-MM")
		}
		*p.dst = &ym
	}

	summaries, err := h.engine.GetMonthlySummary(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.MonthlySummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.MonthlySummaryDTO{
			ProductID:        s.ProductID,
			ProductName:      s.ProductName,
			Year:             s.Year,
			Month:            s.Month,
			TotalIn:          s.TotalIn,
			TotalOut:         s.TotalOut,
			TotalAdjustments: s.TotalAdjustments,
			MovementCount:    s.MovementCount,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "summaries": out})
}

// StockSummary GET /api/ledger/summary/stock
func (h *LedgerHandler) StockSummary(c *fiber.Ctx) error {
	s, err := h.engine.GetStockSummary(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockSummaryDTO{
		TotalProducts:     s.TotalProducts,
		ActiveProducts:    s.ActiveProducts,
		LowStockProducts:  s.LowStockProducts,
		OverstockProducts: s.OverstockProducts,
		TotalStockValue:   s.TotalStockValue,
		CategoriesCount:   s.CategoriesCount,
		SuppliersCount:    s.SuppliersCount,
	})
}

// Reconcile POST /api/ledger/reconcile?product_id=
// Sin product_id reconcilia todo el catálogo.
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	if id := c.Query("product_id"); id != "" {
		res, err := h.engine.Reconcile(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(dto.ReconcileFromResult(res))
	}

	results, err := h.engine.ReconcileAll(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ReconcileResultDTO, 0, len(results))
	corrected := 0
	for _, r := range results {
		if r.Corrected {
			corrected++
		}
		out = append(out, dto.ReconcileFromResult(r))
	}
	return c.JSON(fiber.Map{"total": len(out), "corrected": corrected, "results": out})
}
