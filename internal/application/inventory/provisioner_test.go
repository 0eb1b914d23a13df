package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestProvisioner_SucursalesPrimeroLuegoProductos(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, report := f.createBranch(t, "c1", fmt.Sprintf("S%d", i))
		assert.Zero(t, report.Created)
	}
	for i := 0; i < 4; i++ {
		_, report := f.createProduct(t, "c1", fmt.Sprintf("P%d", i))
		assert.Equal(t, 3, report.Created)
		assert.Empty(t, report.Failures)
	}
	assert.Equal(t, 12, f.countLines(t, "c1"))

	report, err := f.prov.Reconcile(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, 3, report.BranchesScanned)
	assert.Equal(t, 4, report.ProductsScanned)
}

func TestProvisioner_ProductosPrimeroLuegoSucursales(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		_, report := f.createProduct(t, "c1", fmt.Sprintf("P%d", i))
		assert.Zero(t, report.Created, "sin sucursales no hay nada que crear")
	}
	b, report := f.createBranch(t, "c1", "Centro")
	assert.Equal(t, 4, report.Created)
	_, _ = f.createBranch(t, "c1", "Norte")
	_, _ = f.createBranch(t, "c1", "Sur")
	assert.Equal(t, 12, f.countLines(t, "c1"))

	lines, err := f.repos.Lines.ListByBranch(context.Background(), b.ID, 0, 0)
	require.NoError(t, err)
	for _, l := range lines {
		assert.Zero(t, l.Stock)
		assert.Equal(t, entity.DefaultReorderPoint, l.ReorderPoint)
		assert.Equal(t, "c1", l.CompanyID)
	}
}

func TestProvisioner_NoMezclaEmpresas(t *testing.T) {
	f := newFixture(t)
	_, _ = f.createBranch(t, "c1", "Centro")
	_, _ = f.createProduct(t, "c1", "A")
	_, _ = f.createBranch(t, "c2", "Centro")
	_, _ = f.createProduct(t, "c2", "A")
	_, _ = f.createProduct(t, "c2", "B")

	assert.Equal(t, 1, f.countLines(t, "c1"))
	assert.Equal(t, 2, f.countLines(t, "c2"))
}

func TestProvisioner_ActualizarProductoNoReiniciaStock(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "A")
	line := f.line(t, b, p)
	_, err := record(t, f, "c1", line.ID, entity.MovementKindEntry, 9)
	require.NoError(t, err)

	var report entity.CoverageReport
	err = f.runner.Run(context.Background(), func(repos inventory.Repositories) error {
		p.Name = "A renombrado"
		if err := repos.Products.Update(context.Background(), p); err != nil {
			return err
		}
		report, err = f.prov.OnProductCreated(context.Background(), repos, p)
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, 9, f.line(t, b, p).Stock)
	assert.Equal(t, line.ID, f.line(t, b, p).ID)
}

func TestProvisioner_FalloParcialNoDetieneElLote(t *testing.T) {
	f := newFixture(t)
	var products []*entity.Product
	for i := 0; i < 3; i++ {
		p, _ := f.createProduct(t, "c1", fmt.Sprintf("P%d", i))
		products = append(products, p)
	}
	bad := products[1].ID
	boom := errors.New("conexión perdida")

	runner := wrapRunner{inner: f.runner, wrap: func(repos inventory.Repositories) inventory.Repositories {
		repos.Lines = flakyLines{InventoryLineRepository: repos.Lines, fail: func(_, productID string) error {
			if productID == bad {
				return boom
			}
			return nil
		}}
		return repos
	}}

	b := &entity.Branch{ID: "b-centro", CompanyID: "c1", Name: "Centro", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	var report entity.CoverageReport
	err := runner.Run(context.Background(), func(repos inventory.Repositories) error {
		if err := repos.Branches.Create(context.Background(), b); err != nil {
			return err
		}
		r, err := f.prov.OnBranchCreated(context.Background(), repos, b)
		report = r
		return err
	})
	require.NoError(t, err, "la sucursal se confirma aunque un par falle")

	assert.Equal(t, 2, report.Created)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, bad, report.Failures[0].ProductID)
	assert.Equal(t, "error interno de almacenamiento", report.Failures[0].Reason)
	assert.Equal(t, 2, f.countLines(t, "c1"))

	// La reconciliación repara el hueco.
	fixed, err := f.prov.EnsureCoverage(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, fixed.Created)
	assert.Equal(t, 3, f.countLines(t, "c1"))
}

func TestProvisioner_ReintentaErroresTransitorios(t *testing.T) {
	f := newFixture(t)
	_, _ = f.createProduct(t, "c1", "A")

	var calls atomic.Int32
	base := f.store.Repositories()
	base.Lines = flakyLines{InventoryLineRepository: base.Lines, fail: func(string, string) error {
		if calls.Add(1) == 1 {
			return fmt.Errorf("ensure: %w", domain.ErrTransientStorage)
		}
		return nil
	}}
	cfg := inventory.DefaultProvisionerConfig()
	cfg.RetryBackoff = time.Millisecond
	prov := inventory.NewProvisioner(base, cfg, logger.Nop())

	b := &entity.Branch{ID: "b1", CompanyID: "c1", Name: "Centro"}
	require.NoError(t, f.repos.Branches.Create(context.Background(), b))

	report, err := prov.OnBranchCreatedByID(context.Background(), "c1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Empty(t, report.Failures)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProvisioner_TransitorioAgotaIntentos(t *testing.T) {
	f := newFixture(t)
	_, _ = f.createProduct(t, "c1", "A")

	base := f.store.Repositories()
	base.Lines = flakyLines{InventoryLineRepository: base.Lines, fail: func(string, string) error {
		return domain.ErrTransientStorage
	}}
	cfg := inventory.ProvisionerConfig{MaxAttempts: 2, RetryBackoff: time.Millisecond, ReorderPoint: 5}
	prov := inventory.NewProvisioner(base, cfg, logger.Nop())
	require.NoError(t, f.repos.Branches.Create(context.Background(), &entity.Branch{ID: "b1", CompanyID: "c1", Name: "Centro"}))

	report, err := prov.Reconcile(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.ErrTransientStorage.Error(), report.Failures[0].Reason)
}

func TestProvisioner_EventoDeOtraEmpresa(t *testing.T) {
	f := newFixture(t)
	p, _ := f.createProduct(t, "c1", "A")
	b, _ := f.createBranch(t, "c1", "Centro")

	_, err := f.prov.OnProductCreatedByID(context.Background(), "c2", p.ID)
	assert.ErrorIs(t, err, domain.ErrCrossTenant)
	_, err = f.prov.OnBranchCreatedByID(context.Background(), "c2", b.ID)
	assert.ErrorIs(t, err, domain.ErrCrossTenant)
	_, err = f.prov.OnBranchCreatedByID(context.Background(), "c1", "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProvisioner_ParDeEmpresasDistintasSeRechaza(t *testing.T) {
	f := newFixture(t)
	p, _ := f.createProduct(t, "c2", "A")

	// Una sucursal mal etiquetada que llega con un producto de otra empresa.
	foreign := &entity.Branch{ID: "b-x", CompanyID: "c1", Name: "X"}
	require.NoError(t, f.repos.Branches.Create(context.Background(), foreign))
	_, _, err := f.repos.Lines.Ensure(context.Background(), foreign.ID, p.ID, 10)
	assert.ErrorIs(t, err, domain.ErrCrossTenant)
	assert.Zero(t, f.countLines(t, "c1"))
	assert.Zero(t, f.countLines(t, "c2"))
}

func TestProvisioner_AltasConcurrentesCoberturaExacta(t *testing.T) {
	f := newFixture(t)

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			_, _, err := f.tryCreateProduct("c1", fmt.Sprintf("P%d", i))
			return err
		})
		g.Go(func() error {
			_, _, err := f.tryCreateBranch("c1", fmt.Sprintf("S%d", i))
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 36, f.countLines(t, "c1"))

	report, err := f.prov.Reconcile(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, report.Created, "nada quedó sin cubrir")
}

func TestProvisioner_EnsureCoverageSinEmpresa(t *testing.T) {
	f := newFixture(t)
	_, err := f.prov.EnsureCoverage(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	report, err := f.prov.EnsureCoverage(context.Background(), "vacía")
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.BranchesScanned)
}

func TestProvisioner_CtxCanceladoCortaElLote(t *testing.T) {
	f := newFixture(t)
	_, _ = f.createProduct(t, "c1", "A")
	require.NoError(t, f.repos.Branches.Create(context.Background(), &entity.Branch{ID: "b1", CompanyID: "c1", Name: "Centro"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.prov.Reconcile(ctx, "c1")
	assert.ErrorIs(t, err, context.Canceled)
}

// seedCatalog da de alta sucursales y productos sin aprovisionar (catálogo cargado por fuera).
func seedCatalog(t *testing.T, f *fixture, companyID string, branches, products int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < branches; i++ {
		require.NoError(t, f.repos.Branches.Create(ctx, &entity.Branch{
			ID: fmt.Sprintf("%s-b%d", companyID, i), CompanyID: companyID, Name: fmt.Sprintf("S%d", i), IsActive: true,
		}))
	}
	for i := 0; i < products; i++ {
		require.NoError(t, f.repos.Products.Create(ctx, &entity.Product{
			ID: fmt.Sprintf("%s-p%d", companyID, i), CompanyID: companyID, SKU: fmt.Sprintf("P%d", i), Name: fmt.Sprintf("P%d", i),
		}))
	}
}

func TestProvisioner_EnsureCoverageSinSucursales(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "c1", 0, 3)

	report, err := f.prov.EnsureCoverage(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, 3, report.ProductsScanned)
	assert.Zero(t, report.BranchesScanned)
	assert.Empty(t, report.Failures)
}

func TestProvisioner_EnsureCoverageDosVeces(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f, "c1", 3, 4)
	seedCatalog(t, f, "c2", 2, 1)
	require.Zero(t, f.countLines(t, "c1"))

	first, err := f.prov.EnsureCoverage(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 12, first.Created)
	assert.Equal(t, 3, first.BranchesScanned)
	assert.Equal(t, 4, first.ProductsScanned)
	assert.Empty(t, first.Failures)
	assert.Equal(t, 12, f.countLines(t, "c1"))

	second, err := f.prov.EnsureCoverage(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 3, second.BranchesScanned)
	assert.Equal(t, 4, second.ProductsScanned)
	assert.Equal(t, 12, f.countLines(t, "c1"))
	assert.Zero(t, f.countLines(t, "c2"), "la otra empresa no se toca")
}
