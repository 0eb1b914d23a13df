package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-stock/internal/application/dto"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
)

// ReorderUseCase genera la lista de reposición: líneas en o bajo su punto de reorden.
type ReorderUseCase struct {
	lineRepo   repository.InventoryLineRepository
	branchRepo repository.BranchRepository
}

// NewReorderUseCase construye el caso de uso de reposición.
func NewReorderUseCase(lineRepo repository.InventoryLineRepository, branchRepo repository.BranchRepository) *ReorderUseCase {
	return &ReorderUseCase{lineRepo: lineRepo, branchRepo: branchRepo}
}

// ListReorderDue devuelve las líneas que necesitan reorden con la cantidad sugerida de pedido.
// branchID puede ser vacío para considerar todas las sucursales de la empresa.
func (uc *ReorderUseCase) ListReorderDue(ctx context.Context, companyID, branchID string) ([]dto.ReorderSuggestionDTO, error) {
	if branchID != "" {
		branch, err := uc.branchRepo.GetByID(ctx, branchID)
		if err != nil {
			return nil, err
		}
		if branch == nil || branch.CompanyID != companyID {
			return nil, domain.ErrNotFound
		}
	}

	lines, err := uc.lineRepo.ListReorderDue(ctx, companyID, branchID)
	if err != nil {
		return nil, err
	}
	suggestions := make([]dto.ReorderSuggestionDTO, 0, len(lines))
	for _, l := range lines {
		// El repositorio ya filtra, pero la regla de dominio decide.
		if !l.NeedsReorder() {
			continue
		}
		ideal := idealStock(l.ReorderPoint)
		qty := ideal - l.Stock
		if qty < 0 {
			qty = 0
		}
		suggestions = append(suggestions, dto.ReorderSuggestionDTO{
			InventoryLineID:   l.ID,
			BranchID:          l.BranchID,
			ProductID:         l.ProductID,
			CurrentStock:      l.Stock,
			ReorderPoint:      l.ReorderPoint,
			IdealStock:        ideal,
			SuggestedOrderQty: qty,
		})
	}

	// Mayor déficit primero; desempate estable por línea.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA := a.ReorderPoint - a.CurrentStock
		defB := b.ReorderPoint - b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		return a.InventoryLineID < b.InventoryLineID
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

// idealStock = ceil(reorderPoint * 1.5)
func idealStock(reorderPoint int) int {
	return (reorderPoint*3 + 1) / 2
}
