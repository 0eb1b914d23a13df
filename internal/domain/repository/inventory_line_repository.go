package repository

import (
	"context"

	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

// InventoryLineRepository define el puerto para las líneas de inventario (stock por sucursal+producto).
// Usado con pool o dentro de transacciones (ver inventory.TxRunner).
type InventoryLineRepository interface {
	GetByID(ctx context.Context, id string) (*entity.InventoryLine, error)
	GetByPair(ctx context.Context, branchID, productID string) (*entity.InventoryLine, error)

	// GetForUpdate obtiene la línea bloqueando la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryLine, error)

	// Ensure busca o crea de forma atómica la línea del par (branchID, productID).
	// La restricción única del par decide las carreras: el perdedor recibe la fila del ganador y created=false.
	// Devuelve domain.ErrCrossTenant si sucursal y producto son de empresas distintas
	// y domain.ErrNotFound si alguno no existe.
	Ensure(ctx context.Context, branchID, productID string, reorderPoint int) (line *entity.InventoryLine, created bool, err error)

	// UpdateStock persiste stock y last_counted de una línea previamente bloqueada.
	UpdateStock(ctx context.Context, line *entity.InventoryLine) error

	// UpdateReorderPoint cambia solo el punto de reorden (>= 0) y devuelve la línea resultante.
	// domain.ErrNotFound si la línea no existe.
	UpdateReorderPoint(ctx context.Context, id string, reorderPoint int) (*entity.InventoryLine, error)

	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.InventoryLine, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.InventoryLine, error)

	// ListReorderDue devuelve las líneas con stock <= reorder_point de la empresa.
	// branchID vacío considera todas las sucursales.
	ListReorderDue(ctx context.Context, companyID, branchID string) ([]*entity.InventoryLine, error)
}
