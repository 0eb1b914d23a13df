package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/application/usecase"
	"github.com/jhoicas/inventario-stock/pkg/jwt"
	"github.com/jhoicas/inventario-stock/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger      *inventory.StockLedgerUseCase
	Queries     *inventory.QueryUseCase
	Reorder     *inventory.ReorderUseCase
	Provisioner *inventory.Provisioner
	BranchUC    *usecase.BranchUseCase
	ProductUC   *usecase.ProductUseCase
	JWTSecret   string
	JWTIssuer   string
	Log         *logger.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token; la empresa sale del token.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("http")

	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Inventario
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Queries, deps.Reorder, deps.Provisioner, log)
	inv := protected.Group("/inventory")
	inv.Post("/movements", RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor), inventoryHandler.RecordMovement)
	inv.Get("/lines/:id", inventoryHandler.GetLine)
	inv.Patch("/lines/:id", RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero), inventoryHandler.UpdateLine)
	inv.Get("/lines/:id/movements", inventoryHandler.ListLineMovements)
	inv.Get("/branches/:id/lines", inventoryHandler.ListBranchLines)
	inv.Get("/products/:id/stock", inventoryHandler.ProductStock)
	inv.Get("/reorder", inventoryHandler.ReorderList)
	inv.Post("/sync", adminOnly, inventoryHandler.Sync)

	// Sucursales
	branchHandler := NewBranchHandler(deps.BranchUC, log)
	branches := protected.Group("/branches")
	branches.Get("/", branchHandler.List)
	branches.Post("/", adminOnly, branchHandler.Create)

	// Productos
	productHandler := NewProductHandler(deps.ProductUC, log)
	products := protected.Group("/products")
	products.Get("/", productHandler.List)
	products.Post("/", adminOnly, productHandler.Create)
	products.Put("/:id", adminOnly, productHandler.Update)
}
