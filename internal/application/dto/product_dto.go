package dto

import "time"

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	SKU  string `json:"sku" validate:"required,min=1,max=100"`
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// UpdateProductRequest entrada para actualizar un producto (el stock se maneja vía movimientos).
type UpdateProductRequest struct {
	SKU  *string `json:"sku" validate:"omitempty,min=1,max=100"`
	Name *string `json:"name" validate:"omitempty,min=1,max=200"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID                    string    `json:"id"`
	CompanyID             string    `json:"company_id"`
	SKU                   string    `json:"sku"`
	Name                  string    `json:"name"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	InventoryLinesCreated int       `json:"inventory_lines_created"`
}

// ProductListResponse lista de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
}
