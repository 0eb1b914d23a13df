package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
	"github.com/jhoicas/inventario-stock/pkg/logger"
)

// ProvisionerConfig parámetros del aprovisionamiento de líneas.
type ProvisionerConfig struct {
	MaxAttempts  int           // intentos por par ante errores transitorios
	RetryBackoff time.Duration // espera base entre intentos (se multiplica por el intento)
	ReorderPoint int           // punto de reorden de las líneas nuevas
}

// DefaultProvisionerConfig valores por defecto: 3 intentos, 50ms, reorden en 10.
func DefaultProvisionerConfig() ProvisionerConfig {
	return ProvisionerConfig{MaxAttempts: 3, RetryBackoff: 50 * time.Millisecond, ReorderPoint: entity.DefaultReorderPoint}
}

// Provisioner garantiza que cada par (sucursal, producto) de una empresa tenga exactamente
// una línea de inventario, sin importar si se creó primero la sucursal o el producto.
// Los handlers OnProductCreated/OnBranchCreated se invocan explícitamente desde los casos de uso
// del catálogo, dentro de la misma transacción que la escritura del catálogo.
type Provisioner struct {
	base Repositories // repos del pool, para barridos fuera de una transacción del catálogo
	cfg  ProvisionerConfig
	log  *logger.Logger
}

// NewProvisioner construye el aprovisionador. base debe estar atado al pool (no a una tx).
func NewProvisioner(base Repositories, cfg ProvisionerConfig, log *logger.Logger) *Provisioner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.ReorderPoint < 0 {
		cfg.ReorderPoint = entity.DefaultReorderPoint
	}
	return &Provisioner{base: base, cfg: cfg, log: log}
}

// OnProductCreated asegura una línea por cada sucursal de la empresa del producto.
// Es idempotente: también se invoca al actualizar un producto y nunca reinicia stock existente.
func (p *Provisioner) OnProductCreated(ctx context.Context, repos Repositories, product *entity.Product) (entity.CoverageReport, error) {
	branches, err := NewCatalogView(repos.Branches, repos.Products).ListBranches(ctx, product.CompanyID)
	if err != nil {
		return entity.CoverageReport{}, err
	}
	report := entity.CoverageReport{BranchesScanned: len(branches), ProductsScanned: 1}
	if len(branches) == 0 {
		p.log.Debug().Str("company_id", product.CompanyID).Str("product_id", product.ID).Msg("empresa sin sucursales, nada que aprovisionar")
		return report, nil
	}
	err = p.provision(ctx, repos.Lines, branches, []*entity.Product{product}, &report)
	return report, err
}

// OnBranchCreated asegura una línea por cada producto de la empresa de la sucursal.
// Solo se invoca al crear la sucursal; repetirlo no crea duplicados.
func (p *Provisioner) OnBranchCreated(ctx context.Context, repos Repositories, branch *entity.Branch) (entity.CoverageReport, error) {
	products, err := NewCatalogView(repos.Branches, repos.Products).ListProducts(ctx, branch.CompanyID)
	if err != nil {
		return entity.CoverageReport{}, err
	}
	report := entity.CoverageReport{BranchesScanned: 1, ProductsScanned: len(products)}
	if len(products) == 0 {
		p.log.Debug().Str("company_id", branch.CompanyID).Str("branch_id", branch.ID).Msg("empresa sin productos, nada que aprovisionar")
		return report, nil
	}
	err = p.provision(ctx, repos.Lines, []*entity.Branch{branch}, products, &report)
	return report, err
}

// OnProductCreatedByID resuelve el producto y aprovisiona fuera de una transacción del catálogo
// (eventos ProductCreated de un catálogo externo).
func (p *Provisioner) OnProductCreatedByID(ctx context.Context, companyID, productID string) (entity.CoverageReport, error) {
	product, err := p.base.Products.GetByID(ctx, productID)
	if err != nil {
		return entity.CoverageReport{}, err
	}
	if product == nil {
		return entity.CoverageReport{}, domain.ErrNotFound
	}
	if product.CompanyID != companyID {
		p.logIntegrity(companyID, "", productID, "evento ProductCreated con empresa distinta a la del producto")
		return entity.CoverageReport{}, domain.ErrCrossTenant
	}
	return p.OnProductCreated(ctx, p.base, product)
}

// OnBranchCreatedByID resuelve la sucursal y aprovisiona fuera de una transacción del catálogo
// (eventos BranchCreated de un catálogo externo).
func (p *Provisioner) OnBranchCreatedByID(ctx context.Context, companyID, branchID string) (entity.CoverageReport, error) {
	branch, err := p.base.Branches.GetByID(ctx, branchID)
	if err != nil {
		return entity.CoverageReport{}, err
	}
	if branch == nil {
		return entity.CoverageReport{}, domain.ErrNotFound
	}
	if branch.CompanyID != companyID {
		p.logIntegrity(companyID, branchID, "", "evento BranchCreated con empresa distinta a la de la sucursal")
		return entity.CoverageReport{}, domain.ErrCrossTenant
	}
	return p.OnBranchCreated(ctx, p.base, branch)
}

// Reconcile recorre todos los pares de la empresa y crea las líneas faltantes (p. ej. por fallos
// parciales previos). Cada par se asegura en su propia transacción.
func (p *Provisioner) Reconcile(ctx context.Context, companyID string) (entity.CoverageReport, error) {
	catalog := NewCatalogView(p.base.Branches, p.base.Products)
	branches, err := catalog.ListBranches(ctx, companyID)
	if err != nil {
		return entity.CoverageReport{}, err
	}
	products, err := catalog.ListProducts(ctx, companyID)
	if err != nil {
		return entity.CoverageReport{}, err
	}
	report := entity.CoverageReport{BranchesScanned: len(branches), ProductsScanned: len(products)}
	if len(branches) == 0 || len(products) == 0 {
		return report, nil
	}
	err = p.provision(ctx, p.base.Lines, branches, products, &report)
	p.log.Info().
		Str("company_id", companyID).
		Int("created", report.Created).
		Int("branches", report.BranchesScanned).
		Int("products", report.ProductsScanned).
		Int("failures", len(report.Failures)).
		Msg("reconciliación de inventario completada")
	return report, err
}

// EnsureCoverage punto de entrada de la sincronización manual.
func (p *Provisioner) EnsureCoverage(ctx context.Context, companyID string) (entity.CoverageReport, error) {
	if companyID == "" {
		return entity.CoverageReport{}, domain.ErrInvalidInput
	}
	return p.Reconcile(ctx, companyID)
}

// provision asegura cada par del producto cartesiano. Un par fallido queda en report.Failures
// y no detiene a los demás; solo la cancelación del ctx corta el lote.
func (p *Provisioner) provision(
	ctx context.Context,
	lines repository.InventoryLineRepository,
	branches []*entity.Branch,
	products []*entity.Product,
	report *entity.CoverageReport,
) error {
	for _, product := range products {
		for _, branch := range branches {
			if err := ctx.Err(); err != nil {
				return err
			}
			created, err := p.ensurePair(ctx, lines, branch, product)
			if err != nil {
				report.Failures = append(report.Failures, entity.PairFailure{
					BranchID:  branch.ID,
					ProductID: product.ID,
					Reason:    failureReason(err),
				})
				if !errors.Is(err, domain.ErrCrossTenant) {
					p.log.Error().Err(err).
						Str("branch_id", branch.ID).
						Str("product_id", product.ID).
						Msg("error creando línea de inventario")
				}
				continue
			}
			if created {
				report.Created++
				p.log.Debug().
					Str("company_id", product.CompanyID).
					Str("branch_id", branch.ID).
					Str("product_id", product.ID).
					Msg("línea de inventario creada")
			}
		}
	}
	return nil
}

func (p *Provisioner) ensurePair(ctx context.Context, lines repository.InventoryLineRepository, branch *entity.Branch, product *entity.Product) (bool, error) {
	if branch.CompanyID != product.CompanyID {
		p.logIntegrity(branch.CompanyID, branch.ID, product.ID, "par sucursal/producto de empresas distintas")
		return false, domain.ErrCrossTenant
	}
	for attempt := 1; ; attempt++ {
		_, created, err := lines.Ensure(ctx, branch.ID, product.ID, p.cfg.ReorderPoint)
		if err == nil {
			return created, nil
		}
		if errors.Is(err, domain.ErrCrossTenant) {
			p.logIntegrity(branch.CompanyID, branch.ID, product.ID, "la BD rechazó un par de empresas distintas")
			return false, err
		}
		if !errors.Is(err, domain.ErrTransientStorage) || attempt >= p.cfg.MaxAttempts {
			return false, err
		}
		p.log.Warn().Err(err).Int("attempt", attempt).
			Str("branch_id", branch.ID).
			Str("product_id", product.ID).
			Msg("reintentando creación de línea")
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(p.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
}

func (p *Provisioner) logIntegrity(companyID, branchID, productID, msg string) {
	p.log.Error().
		Bool("integrity", true).
		Str("company_id", companyID).
		Str("branch_id", branchID).
		Str("product_id", productID).
		Msg(msg)
}

// failureReason mensaje para el reporte; los errores internos no exponen detalle.
func failureReason(err error) string {
	for _, known := range []error{
		domain.ErrCrossTenant,
		domain.ErrNotFound,
		domain.ErrTransientStorage,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "error interno de almacenamiento"
}
