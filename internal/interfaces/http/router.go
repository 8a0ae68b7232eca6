package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName string
	Engine  *inventory.Engine
	Log     *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	api := app.Group("/api/ledger")
	if deps.Log != nil {
		api.Use(RequestLogger(deps.Log))
	}
	h := NewLedgerHandler(deps.Engine)

	api.Post("/movements", h.SubmitMovement)
	api.Get("/movements", h.ListMovements)

	products := api.Group("/products")
	products.Get("/:id/stock", h.GetStock)
	products.Put("/:id/stock", h.UpdateStock)
	products.Get("/:id/value", h.GetStockValue)
	products.Post("/:id/init", h.InitProduct)
	products.Delete("/:id", h.PurgeProduct)

	api.Get("/alerts/low-stock", h.LowStockAlerts)
	api.Get("/summary/monthly", h.MonthlySummary)
	api.Get("/summary/stock", h.StockSummary)
	api.Post("/reconcile", h.Reconcile)
}

// RequestLogger registra método, ruta, estado y duración de cada petición.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		ev := log.Debug()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("http")
		return err
	}
}
