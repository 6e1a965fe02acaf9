package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *ledger.Service
	JWTSecret string
	Logger    zerolog.Logger
	// Gatherer expone /metrics; nil = sin endpoint de métricas.
	Gatherer prometheus.Gatherer
	AppName  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Operación (público)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	managers := RequireRole(jwt.RoleAdmin, jwt.RoleStorekeeper)
	admins := RequireRole(jwt.RoleAdmin)

	// Catálogo de repuestos líquidos
	parts := api.Group("/parts")
	partHandler := NewPartHandler(deps.Ledger, deps.Logger)
	parts.Post("/", managers, partHandler.Create)
	parts.Get("/", partHandler.List)
	parts.Get("/:id", partHandler.GetByID)

	// Operadores de stock y consultas del libro
	liquids := api.Group("/liquids/:partId")
	h := NewLedgerHandler(deps.Ledger, deps.Logger)
	liquids.Post("/receipts", managers, h.Receive)
	liquids.Post("/breaks", h.BreakContainer)
	liquids.Post("/usages", h.UseInternal)
	liquids.Post("/sales", managers, h.SellExternal)
	liquids.Post("/transfers", managers, h.TransferToVan)
	liquids.Post("/returns", h.ReturnToStore)
	liquids.Post("/adjustments", admins, h.Adjust)
	liquids.Post("/initial-stock", admins, h.InitialStock)
	liquids.Get("/ledger", h.GetLedger)
	liquids.Get("/balance", h.GetBalance)
	liquids.Get("/reconciliation", admins, h.Reconcile)
}
