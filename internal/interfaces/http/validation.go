package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-stock/internal/application/dto"
)

const maxLimit = 100

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindJSON decodifica el cuerpo y aplica las reglas `validate` del DTO.
// Devuelve nil si todo está bien; si no, la respuesta 400 a enviar.
func bindJSON(c *fiber.Ctx, out any) *dto.ErrorResponse {
	if err := c.BodyParser(out); err != nil {
		return &dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"}
	}
	if err := validate.Struct(out); err != nil {
		resp := &dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]any, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			resp.Details = fields
		}
		return resp
	}
	return nil
}

// pageParams lee limit/offset del query string (limit 1..100, por defecto 20).
func pageParams(c *fiber.Ctx) dto.PageRequest {
	var p dto.PageRequest
	p.Limit, _ = strconv.Atoi(c.Query("limit"))
	p.Offset, _ = strconv.Atoi(c.Query("offset"))
	p.DefaultPage()
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
