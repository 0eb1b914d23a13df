package entity

import "time"

// Branch representa una sucursal de la empresa donde se mantiene inventario.
type Branch struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
