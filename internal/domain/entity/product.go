package entity

import "time"

// Product representa un producto o SKU de la empresa. El stock vive en InventoryLine, por sucursal.
type Product struct {
	ID        string
	CompanyID string
	SKU       string // código único por empresa
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
