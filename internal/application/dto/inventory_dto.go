package dto

import (
	"time"

	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

// RecordMovementRequest body para POST /api/inventory/movements.
// quantity >= 1; en type=adjustment se permite negativo para corregir a la baja.
type RecordMovementRequest struct {
	InventoryLineID string `json:"inventory_line_id" validate:"required,max=64"`
	Kind            string `json:"type"`
	Quantity        int    `json:"quantity"`
	Reference       string `json:"reference,omitempty" validate:"max=100"`
	Notes           string `json:"notes,omitempty" validate:"max=1000"`
}

// UpdateInventoryLineRequest body para PATCH /api/inventory/lines/:id.
// Solo reorder_point es editable; Stock existe para rechazar cuerpos que intenten fijarlo.
type UpdateInventoryLineRequest struct {
	ReorderPoint *int `json:"reorder_point" validate:"required,min=0,max=2147483647"`
	Stock        *int `json:"stock,omitempty" swaggerignore:"true"`
}

// MovementResponse salida de un movimiento del libro.
type MovementResponse struct {
	ID              string    `json:"id"`
	InventoryLineID string    `json:"inventory_line_id"`
	Kind            string    `json:"type"`
	Quantity        int       `json:"quantity"`
	Delta           int       `json:"delta"`
	StockAfter      int       `json:"stock_after"`
	Reference       string    `json:"reference,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	UserID          *string   `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// InventoryLineResponse salida de una línea de inventario.
type InventoryLineResponse struct {
	ID           string    `json:"id"`
	BranchID     string    `json:"branch_id"`
	ProductID    string    `json:"product_id"`
	Stock        int       `json:"stock"`
	ReorderPoint int       `json:"reorder_point"`
	NeedsReorder bool      `json:"needs_reorder"`
	LastCounted  time.Time `json:"last_counted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InventoryLineListResponse lista paginada de líneas.
type InventoryLineListResponse struct {
	Items []InventoryLineResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ProductStockResponse stock agregado de un producto.
type ProductStockResponse struct {
	ProductID  string `json:"product_id"`
	TotalStock int    `json:"total_stock"`
	Branches   int    `json:"branches"`
}

// ReorderSuggestionDTO sugerencia de reposición para una línea en o bajo su punto de reorden.
type ReorderSuggestionDTO struct {
	InventoryLineID   string `json:"inventory_line_id"`
	BranchID          string `json:"branch_id"`
	ProductID         string `json:"product_id"`
	CurrentStock      int    `json:"current_stock"`
	ReorderPoint      int    `json:"reorder_point"`
	IdealStock        int    `json:"ideal_stock"`         // ceil(ReorderPoint * 1.5)
	SuggestedOrderQty int    `json:"suggested_order_qty"` // IdealStock - CurrentStock
	Priority          int    `json:"priority"`            // 1 = más urgente
}

// SyncResponse resultado de POST /api/inventory/sync.
type SyncResponse struct {
	Message            string           `json:"message"`
	InventoriesCreated int              `json:"inventories_created"`
	TotalBranches      int              `json:"total_branches"`
	TotalProducts      int              `json:"total_products"`
	Failures           []PairFailureDTO `json:"failures"`
}

// PairFailureDTO par que no pudo aprovisionarse.
type PairFailureDTO struct {
	BranchID  string `json:"branch_id"`
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// ToMovementResponse convierte la entidad en DTO.
func ToMovementResponse(m *entity.InventoryMovement) *MovementResponse {
	if m == nil {
		return nil
	}
	return &MovementResponse{
		ID:              m.ID,
		InventoryLineID: m.InventoryLineID,
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		Delta:           m.Delta,
		StockAfter:      m.StockAfter,
		Reference:       m.Reference,
		Notes:           m.Notes,
		UserID:          m.ActorID,
		CreatedAt:       m.CreatedAt,
	}
}

// ToInventoryLineResponse convierte la entidad en DTO.
func ToInventoryLineResponse(l *entity.InventoryLine) *InventoryLineResponse {
	if l == nil {
		return nil
	}
	return &InventoryLineResponse{
		ID:           l.ID,
		BranchID:     l.BranchID,
		ProductID:    l.ProductID,
		Stock:        l.Stock,
		ReorderPoint: l.ReorderPoint,
		NeedsReorder: l.NeedsReorder(),
		LastCounted:  l.LastCounted,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// ToSyncResponse convierte un reporte de cobertura en la respuesta de sincronización.
func ToSyncResponse(r entity.CoverageReport) SyncResponse {
	failures := make([]PairFailureDTO, 0, len(r.Failures))
	for _, f := range r.Failures {
		failures = append(failures, PairFailureDTO{BranchID: f.BranchID, ProductID: f.ProductID, Reason: f.Reason})
	}
	return SyncResponse{
		Message:            "Sincronización completada",
		InventoriesCreated: r.Created,
		TotalBranches:      r.BranchesScanned,
		TotalProducts:      r.ProductsScanned,
		Failures:           failures,
	}
}
