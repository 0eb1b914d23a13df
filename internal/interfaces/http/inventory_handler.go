package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-stock/internal/application/dto"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/pkg/logger"
)

// InventoryHandler maneja las peticiones HTTP de movimientos e inventario (protegido).
type InventoryHandler struct {
	ledger      *inventory.StockLedgerUseCase
	queries     *inventory.QueryUseCase
	reorder     *inventory.ReorderUseCase
	provisioner *inventory.Provisioner
	log         *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	ledger *inventory.StockLedgerUseCase,
	queries *inventory.QueryUseCase,
	reorder *inventory.ReorderUseCase,
	provisioner *inventory.Provisioner,
	log *logger.Logger,
) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, queries: queries, reorder: reorder, provisioner: provisioner, log: log}
}

// RecordMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "inventory_line_id, type (entry|exit|adjustment|return), quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.RecordMovementRequest
	if resp := bindJSON(c, &in); resp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	out, err := h.ledger.RecordMovementFromRequest(c.Context(), companyID, GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetLine godoc
// @Summary      Línea de inventario (stock actual)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la línea"
// @Success      200  {object}  dto.InventoryLineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/lines/{id} [get]
func (h *InventoryHandler) GetLine(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	line, err := h.queries.GetLine(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToInventoryLineResponse(line))
}

// UpdateLine godoc
// @Summary      Cambiar el punto de reorden de una línea
// @Description  El stock no es editable: solo cambia con movimientos.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID de la línea"
// @Param        body  body  dto.UpdateInventoryLineRequest  true  "reorder_point"
// @Success      200   {object}  dto.InventoryLineResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/lines/{id} [patch]
func (h *InventoryHandler) UpdateLine(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.UpdateInventoryLineRequest
	if resp := bindJSON(c, &in); resp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	if in.Stock != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "el stock solo cambia con movimientos",
			Details: map[string]any{"stock": "readonly"},
		})
	}
	line, err := h.queries.UpdateReorderPoint(c.Context(), companyID, c.Params("id"), *in.ReorderPoint)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToInventoryLineResponse(line))
}

// ListLineMovements godoc
// @Summary      Libro de movimientos de una línea (más recientes primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la línea"
// @Param        limit   query  int     false  "Límite (default 20, máx 100)"
// @Param        offset  query  int     false  "Offset"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/lines/{id}/movements [get]
func (h *InventoryHandler) ListLineMovements(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	page := pageParams(c)
	list, err := h.queries.ListLineMovements(c.Context(), companyID, c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *dto.ToMovementResponse(m))
	}
	return c.JSON(dto.MovementListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// ListBranchLines godoc
// @Summary      Líneas de inventario de una sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la sucursal"
// @Param        limit   query  int     false  "Límite (default 20, máx 100)"
// @Param        offset  query  int     false  "Offset"
// @Success      200  {object}  dto.InventoryLineListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/branches/{id}/lines [get]
func (h *InventoryHandler) ListBranchLines(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	page := pageParams(c)
	list, err := h.queries.ListBranchLines(c.Context(), companyID, c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.InventoryLineResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *dto.ToInventoryLineResponse(l))
	}
	return c.JSON(dto.InventoryLineListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// ProductStock godoc
// @Summary      Stock total de un producto en todas las sucursales
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del producto"
// @Success      200  {object}  dto.ProductStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/stock [get]
func (h *InventoryHandler) ProductStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	stock, err := h.queries.ProductStock(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ProductStockResponse{ProductID: stock.ProductID, TotalStock: stock.TotalStock, Branches: stock.Branches})
}

// ReorderList godoc
// @Summary      Lista de reposición
// @Description  Líneas en o bajo su punto de reorden con la cantidad sugerida de pedido, más urgentes primero.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Filtrar por sucursal. Vacío = todas."
// @Success      200  {array}   dto.ReorderSuggestionDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/reorder [get]
func (h *InventoryHandler) ReorderList(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	list, err := h.reorder.ListReorderDue(c.Context(), companyID, c.Query("branch_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// Sync godoc
// @Summary      Sincronizar inventario
// @Description  Crea las líneas faltantes para todo par sucursal × producto de la empresa. Idempotente.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SyncResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/sync [post]
func (h *InventoryHandler) Sync(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	report, err := h.provisioner.EnsureCoverage(c.Context(), companyID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToSyncResponse(report))
}
