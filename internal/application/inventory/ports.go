package inventory

import (
	"context"

	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
)

// Repositories agrupa los repositorios atados a una misma transacción (o al pool, fuera de ella).
type Repositories struct {
	Lines     repository.InventoryLineRepository
	Movements repository.InventoryMovementRepository
	Branches  repository.BranchRepository
	Products  repository.ProductRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback completo ante cualquier error, pánico o cancelación del ctx.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repositories) error) error
}

// CatalogView entrega sucursales y productos de una empresa. Única dependencia del aprovisionador.
type CatalogView interface {
	ListBranches(ctx context.Context, companyID string) ([]*entity.Branch, error)
	ListProducts(ctx context.Context, companyID string) ([]*entity.Product, error)
}

// StockCache cache de proyecciones de lectura. Puede quedar desactualizada hasta la
// siguiente invalidación; el stock autoritativo siempre es el de InventoryLine.
type StockCache interface {
	GetProductStock(ctx context.Context, companyID, productID string) (*entity.ProductStock, bool)
	SetProductStock(ctx context.Context, stock *entity.ProductStock)
	InvalidateProduct(ctx context.Context, companyID, productID string)
}

// NopStockCache desactiva el cache (sin Redis configurado).
type NopStockCache struct{}

func (NopStockCache) GetProductStock(context.Context, string, string) (*entity.ProductStock, bool) {
	return nil, false
}
func (NopStockCache) SetProductStock(context.Context, *entity.ProductStock) {}
func (NopStockCache) InvalidateProduct(context.Context, string, string) {}

// RepositoryCatalog implementa CatalogView sobre los repositorios de sucursales y productos.
type RepositoryCatalog struct {
	branches repository.BranchRepository
	products repository.ProductRepository
}

// NewCatalogView construye la vista de catálogo. Pasar repos del pool o de una tx.
func NewCatalogView(branches repository.BranchRepository, products repository.ProductRepository) *RepositoryCatalog {
	return &RepositoryCatalog{branches: branches, products: products}
}

func (c *RepositoryCatalog) ListBranches(ctx context.Context, companyID string) ([]*entity.Branch, error) {
	return c.branches.ListByCompany(ctx, companyID)
}

func (c *RepositoryCatalog) ListProducts(ctx context.Context, companyID string) ([]*entity.Product, error) {
	return c.products.ListByCompany(ctx, companyID)
}
