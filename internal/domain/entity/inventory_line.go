package entity

import "time"

// DefaultReorderPoint punto de reorden con el que nace cada línea de inventario.
const DefaultReorderPoint = 10

// InventoryLine representa el stock de un producto en una sucursal (única por par sucursal/producto).
// Solo se modifica aplicando movimientos del libro (InventoryMovement).
type InventoryLine struct {
	ID           string
	CompanyID    string // derivado de la sucursal
	BranchID     string
	ProductID    string
	Stock        int
	ReorderPoint int
	LastCounted  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NeedsReorder indica si el stock está en o por debajo del punto de reorden.
func (l *InventoryLine) NeedsReorder() bool {
	return l.Stock <= l.ReorderPoint
}

// ProductStock stock agregado de un producto en todas las sucursales de la empresa.
type ProductStock struct {
	CompanyID  string
	ProductID  string
	TotalStock int
	Branches   int
}
