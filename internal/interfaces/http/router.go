package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Submit    *inventory.SubmitMovementUseCase
	Query     *inventory.QueryUseCase
	Rebuild   *inventory.RebuildUseCase
	JWTSecret string
	Log       *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	inv := protected.Group("/inventory")
	h := NewInventoryHandler(deps.Submit, deps.Query, deps.Rebuild, deps.Log)

	// Lecturas: cualquier usuario autenticado
	inv.Get("/levels", h.ListLevels)
	inv.Get("/levels/:product_id", h.GetLevel)
	inv.Get("/levels/:product_id/history", h.GetHistory)
	inv.Get("/movements", h.ListMovements)

	// Escrituras y operación: solo administradores
	inv.Post("/movements", RequireAdmin(), h.SubmitMovement)
	inv.Post("/rebuild", RequireAdmin(), h.Rebuild)
	inv.Get("/verify", RequireAdmin(), h.Verify)
}
