package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
	"github.com/jhoicas/inventario-stock/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *memory.Store
	runner inventory.TxRunner
	repos  inventory.Repositories
	prov   *inventory.Provisioner
	cache  *recordingCache
	ledger *inventory.StockLedgerUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	runner := memory.NewTxRunner(store, time.Second)
	repos := store.Repositories()
	cfg := inventory.DefaultProvisionerConfig()
	cfg.RetryBackoff = time.Millisecond
	cache := newRecordingCache()
	return &fixture{
		store:  store,
		runner: runner,
		repos:  repos,
		prov:   inventory.NewProvisioner(repos, cfg, logger.Nop()),
		cache:  cache,
		ledger: inventory.NewStockLedgerUseCase(runner, cache, logger.Nop()),
	}
}

// createBranch crea la sucursal y aprovisiona sus líneas en una transacción, como el caso de uso.
func (f *fixture) createBranch(t *testing.T, companyID, name string) (*entity.Branch, entity.CoverageReport) {
	t.Helper()
	b, report, err := f.tryCreateBranch(companyID, name)
	require.NoError(t, err)
	return b, report
}

func (f *fixture) tryCreateBranch(companyID, name string) (*entity.Branch, entity.CoverageReport, error) {
	now := time.Now()
	b := &entity.Branch{ID: uuid.New().String(), CompanyID: companyID, Name: name, IsActive: true, CreatedAt: now, UpdatedAt: now}
	var report entity.CoverageReport
	err := f.runner.Run(context.Background(), func(repos inventory.Repositories) error {
		if err := repos.Branches.LockCompany(context.Background(), companyID); err != nil {
			return err
		}
		if err := repos.Branches.Create(context.Background(), b); err != nil {
			return err
		}
		r, err := f.prov.OnBranchCreated(context.Background(), repos, b)
		report = r
		return err
	})
	return b, report, err
}

func (f *fixture) createProduct(t *testing.T, companyID, sku string) (*entity.Product, entity.CoverageReport) {
	t.Helper()
	p, report, err := f.tryCreateProduct(companyID, sku)
	require.NoError(t, err)
	return p, report
}

func (f *fixture) tryCreateProduct(companyID, sku string) (*entity.Product, entity.CoverageReport, error) {
	now := time.Now()
	p := &entity.Product{ID: uuid.New().String(), CompanyID: companyID, SKU: sku, Name: sku, CreatedAt: now, UpdatedAt: now}
	var report entity.CoverageReport
	err := f.runner.Run(context.Background(), func(repos inventory.Repositories) error {
		if err := repos.Products.LockCompany(context.Background(), companyID); err != nil {
			return err
		}
		if err := repos.Products.Create(context.Background(), p); err != nil {
			return err
		}
		r, err := f.prov.OnProductCreated(context.Background(), repos, p)
		report = r
		return err
	})
	return p, report, err
}

// line devuelve la línea del par; falla si no existe.
func (f *fixture) line(t *testing.T, b *entity.Branch, p *entity.Product) *entity.InventoryLine {
	t.Helper()
	l, err := f.repos.Lines.GetByPair(context.Background(), b.ID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, l, "falta línea para %s/%s", b.Name, p.SKU)
	return l
}

// countLines cuenta las líneas de la empresa recorriendo sus sucursales.
func (f *fixture) countLines(t *testing.T, companyID string) int {
	t.Helper()
	branches, err := f.repos.Branches.ListByCompany(context.Background(), companyID)
	require.NoError(t, err)
	n := 0
	for _, b := range branches {
		lines, err := f.repos.Lines.ListByBranch(context.Background(), b.ID, 0, 0)
		require.NoError(t, err)
		n += len(lines)
	}
	return n
}

// wrapRunner sustituye los repos de cada transacción (inyección de fallos).
type wrapRunner struct {
	inner inventory.TxRunner
	wrap  func(inventory.Repositories) inventory.Repositories
}

func (r wrapRunner) Run(ctx context.Context, fn func(repos inventory.Repositories) error) error {
	return r.inner.Run(ctx, func(repos inventory.Repositories) error {
		return fn(r.wrap(repos))
	})
}

// flakyLines falla Ensure según fail; el resto delega.
type flakyLines struct {
	repository.InventoryLineRepository
	fail func(branchID, productID string) error
}

func (f flakyLines) Ensure(ctx context.Context, branchID, productID string, reorderPoint int) (*entity.InventoryLine, bool, error) {
	if err := f.fail(branchID, productID); err != nil {
		return nil, false, err
	}
	return f.InventoryLineRepository.Ensure(ctx, branchID, productID, reorderPoint)
}

// recordingCache StockCache en memoria que registra invalidaciones.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]entity.ProductStock
	invalidated []string
	hits        int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]entity.ProductStock)}
}

func (c *recordingCache) GetProductStock(_ context.Context, companyID, productID string) (*entity.ProductStock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[companyID+"/"+productID]
	if !ok {
		return nil, false
	}
	c.hits++
	return &s, true
}

func (c *recordingCache) SetProductStock(_ context.Context, s *entity.ProductStock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.CompanyID+"/"+s.ProductID] = *s
}

func (c *recordingCache) InvalidateProduct(_ context.Context, companyID, productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, companyID+"/"+productID)
	c.invalidated = append(c.invalidated, productID)
}
