package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-stock/internal/application/dto"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/pkg/logger"
)

func TestWriteError_Mapeo(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stock insuficiente", &domain.InsufficientStockError{LineID: "l1", Requested: 3, Current: 1}, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
		{"tope de stock", fmt.Errorf("línea l1: %w", domain.ErrStockLimit), fiber.StatusConflict, "STOCK_LIMIT"},
		{"cantidad", domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
		{"tipo", domain.ErrInvalidMovementKind, fiber.StatusBadRequest, "INVALID_MOVEMENT_KIND"},
		{"entrada", domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
		{"no existe", fmt.Errorf("get: %w", domain.ErrNotFound), fiber.StatusNotFound, "NOT_FOUND"},
		{"duplicado", domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
		{"empresas distintas", domain.ErrCrossTenant, fiber.StatusConflict, "CROSS_TENANT"},
		{"transitorio", domain.ErrTransientStorage, fiber.StatusServiceUnavailable, "TRANSIENT"},
		{"interno", errors.New("conexión cerrada"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeError(c, logger.Nop(), tt.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			var body dto.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
			if tt.status == fiber.StatusServiceUnavailable {
				assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))
			}
			if tt.status == fiber.StatusInternalServerError {
				assert.NotContains(t, body.Message, "conexión cerrada")
			}
		})
	}
}
