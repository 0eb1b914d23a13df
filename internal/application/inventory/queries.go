package inventory

import (
	"context"

	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

// QueryUseCase proyecciones de lectura del inventario y configuración de líneas.
// Lee estado confirmado; el stock nunca se escribe desde aquí.
type QueryUseCase struct {
	repos Repositories
	cache StockCache
}

// NewQueryUseCase construye el caso de uso. repos atados al pool; cache puede ser nil.
func NewQueryUseCase(repos Repositories, cache StockCache) *QueryUseCase {
	if cache == nil {
		cache = NopStockCache{}
	}
	return &QueryUseCase{repos: repos, cache: cache}
}

// GetLine devuelve el stock actual de una línea de la empresa.
func (uc *QueryUseCase) GetLine(ctx context.Context, companyID, lineID string) (*entity.InventoryLine, error) {
	line, err := uc.repos.Lines.GetByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return line, nil
}

// UpdateReorderPoint cambia el punto de reorden de una línea de la empresa.
func (uc *QueryUseCase) UpdateReorderPoint(ctx context.Context, companyID, lineID string, reorderPoint int) (*entity.InventoryLine, error) {
	if reorderPoint < 0 {
		return nil, domain.ErrInvalidInput
	}
	if _, err := uc.GetLine(ctx, companyID, lineID); err != nil {
		return nil, err
	}
	return uc.repos.Lines.UpdateReorderPoint(ctx, lineID, reorderPoint)
}

// ListBranchLines lista las líneas de una sucursal de la empresa.
func (uc *QueryUseCase) ListBranchLines(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.InventoryLine, error) {
	branch, err := uc.repos.Branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil || branch.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return uc.repos.Lines.ListByBranch(ctx, branchID, limit, offset)
}

// ListLineMovements lista el libro de una línea, más recientes primero.
func (uc *QueryUseCase) ListLineMovements(ctx context.Context, companyID, lineID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	if _, err := uc.GetLine(ctx, companyID, lineID); err != nil {
		return nil, err
	}
	return uc.repos.Movements.ListByLine(ctx, lineID, limit, offset)
}

// ProductStock suma el stock de un producto en todas las sucursales. Usa el cache si existe.
func (uc *QueryUseCase) ProductStock(ctx context.Context, companyID, productID string) (*entity.ProductStock, error) {
	if cached, ok := uc.cache.GetProductStock(ctx, companyID, productID); ok {
		return cached, nil
	}
	product, err := uc.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	lines, err := uc.repos.Lines.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := &entity.ProductStock{CompanyID: companyID, ProductID: productID}
	for _, l := range lines {
		out.TotalStock += l.Stock
		out.Branches++
	}
	uc.cache.SetProductStock(ctx, out)
	return out, nil
}
