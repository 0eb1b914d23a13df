package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-stock/internal/application/dto"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
	"github.com/jhoicas/inventario-stock/pkg/logger"
)

// ProductUseCase casos de uso de productos. El stock se maneja vía movimientos; crear o
// actualizar un producto asegura sus líneas de inventario en la misma transacción.
type ProductUseCase struct {
	txRunner    inventory.TxRunner
	provisioner *inventory.Provisioner
	repo        repository.ProductRepository
	log         *logger.Logger
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(txRunner inventory.TxRunner, provisioner *inventory.Provisioner, repo repository.ProductRepository, log *logger.Logger) *ProductUseCase {
	return &ProductUseCase{txRunner: txRunner, provisioner: provisioner, repo: repo, log: log}
}

// Create crea un producto y asegura una línea por cada sucursal de la empresa.
func (uc *ProductUseCase) Create(ctx context.Context, companyID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	if companyID == "" || sku == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetByCompanyAndSKU(ctx, companyID, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	product := &entity.Product{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		SKU:       sku,
		Name:      strings.TrimSpace(in.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	report, err := uc.save(ctx, product, func(repos inventory.Repositories) error {
		return repos.Products.Create(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	logCoverage(uc.log, "producto creado", companyID, report)
	return toProductResponse(product, report.Created), nil
}

// Update actualiza un producto de la empresa. Vuelve a asegurar cobertura (idempotente).
func (uc *ProductUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	if in.SKU != nil {
		sku := strings.TrimSpace(*in.SKU)
		if sku == "" {
			return nil, domain.ErrInvalidInput
		}
		product.SKU = sku
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		product.Name = name
	}
	product.UpdatedAt = time.Now()
	report, err := uc.save(ctx, product, func(repos inventory.Repositories) error {
		return repos.Products.Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	logCoverage(uc.log, "producto actualizado", companyID, report)
	return toProductResponse(product, report.Created), nil
}

// List lista los productos de la empresa.
func (uc *ProductUseCase) List(ctx context.Context, companyID string) (*dto.ProductListResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p, 0))
	}
	return &dto.ProductListResponse{Items: items}, nil
}

// save escribe el producto y ejecuta el handler de aprovisionamiento en la misma transacción,
// con el catálogo de la empresa bloqueado.
func (uc *ProductUseCase) save(ctx context.Context, product *entity.Product, write func(inventory.Repositories) error) (entity.CoverageReport, error) {
	var report entity.CoverageReport
	err := uc.txRunner.Run(ctx, func(repos inventory.Repositories) error {
		if err := repos.Products.LockCompany(ctx, product.CompanyID); err != nil {
			return err
		}
		if err := write(repos); err != nil {
			return err
		}
		r, err := uc.provisioner.OnProductCreated(ctx, repos, product)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	return report, err
}

func toProductResponse(p *entity.Product, linesCreated int) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:                    p.ID,
		CompanyID:             p.CompanyID,
		SKU:                   p.SKU,
		Name:                  p.Name,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
		InventoryLinesCreated: linesCreated,
	}
}
