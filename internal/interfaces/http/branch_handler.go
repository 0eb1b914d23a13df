package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-stock/internal/application/dto"
	"github.com/jhoicas/inventario-stock/internal/application/usecase"
	"github.com/jhoicas/inventario-stock/pkg/logger"
)

// BranchHandler maneja las peticiones HTTP de sucursales.
type BranchHandler struct {
	uc  *usecase.BranchUseCase
	log *logger.Logger
}

// NewBranchHandler construye el handler.
func NewBranchHandler(uc *usecase.BranchUseCase, log *logger.Logger) *BranchHandler {
	return &BranchHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear sucursal
// @Description  Crea la sucursal y una línea de inventario por cada producto de la empresa.
// @Tags         branches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateBranchRequest  true  "Datos de la sucursal"
// @Success      201   {object}  dto.BranchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/branches [post]
func (h *BranchHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CreateBranchRequest
	if resp := bindJSON(c, &in); resp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	out, err := h.uc.Create(c.Context(), companyID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar sucursales de la empresa
// @Tags         branches
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.BranchListResponse
// @Router       /api/branches [get]
func (h *BranchHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.List(c.Context(), companyID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
