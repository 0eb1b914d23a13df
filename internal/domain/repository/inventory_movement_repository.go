package repository

import (
	"context"

	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

// InventoryMovementRepository define el puerto de persistencia del libro de movimientos.
// Solo inserción: los movimientos aplicados no se editan ni se borran.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	GetByID(ctx context.Context, id string) (*entity.InventoryMovement, error)
	// ListByLine lista los movimientos de una línea, más recientes primero.
	ListByLine(ctx context.Context, lineID string, limit, offset int) ([]*entity.InventoryMovement, error)
}
