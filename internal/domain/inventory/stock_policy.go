package inventory

import (
	"fmt"
	"math"

	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

// MaxStock tope de cantidades y stock: las columnas de PostgreSQL son INTEGER.
const MaxStock = math.MaxInt32

// ValidateMovement verifica tipo y cantidad antes de abrir la transacción.
// entry, exit y return exigen quantity >= 1; adjustment acepta cualquier valor distinto de cero
// (negativo = corrección a la baja). |quantity| nunca supera MaxStock.
func ValidateMovement(kind string, quantity int) error {
	if !entity.IsValidMovementKind(kind) {
		return domain.ErrInvalidMovementKind
	}
	if quantity > MaxStock || quantity < -MaxStock {
		return domain.ErrInvalidQuantity
	}
	if kind == entity.MovementKindAdjustment {
		if quantity == 0 {
			return domain.ErrInvalidQuantity
		}
		return nil
	}
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// ApplyMovement calcula el delta con signo y el nuevo stock de una línea (servicio de dominio puro).
// Nunca deja el stock en negativo: exit y adjustment negativo devuelven *domain.InsufficientStockError.
func ApplyMovement(lineID string, stock int, kind string, quantity int) (delta, newStock int, err error) {
	if err := ValidateMovement(kind, quantity); err != nil {
		return 0, stock, err
	}
	switch kind {
	case entity.MovementKindEntry, entity.MovementKindReturn:
		delta = quantity
	case entity.MovementKindExit:
		delta = -quantity
	case entity.MovementKindAdjustment:
		delta = quantity
	}
	if stock+delta < 0 {
		return 0, stock, &domain.InsufficientStockError{LineID: lineID, Requested: -delta, Current: stock}
	}
	if delta > 0 && stock > MaxStock-delta {
		return 0, stock, fmt.Errorf("línea %s: %d + %d: %w", lineID, stock, delta, domain.ErrStockLimit)
	}
	return delta, stock + delta, nil
}

// AbsQuantity cantidad registrada en el libro (siempre >= 1).
func AbsQuantity(quantity int) int {
	if quantity < 0 {
		return -quantity
	}
	return quantity
}
