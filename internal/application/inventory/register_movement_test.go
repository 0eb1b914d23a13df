package inventory_test

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/jhoicas/inventario-stock/internal/application/dto"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func record(t *testing.T, f *fixture, companyID, lineID, kind string, qty int) (*entity.InventoryMovement, error) {
	t.Helper()
	return f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
		CompanyID:       companyID,
		ActorID:         "u1",
		InventoryLineID: lineID,
		Kind:            kind,
		Quantity:        qty,
	})
}

func TestRecordMovement_EntradaYSalidaInsuficiente(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	_, err := record(t, f, "c1", line.ID, entity.MovementKindEntry, 5)
	require.NoError(t, err)
	mov, err := record(t, f, "c1", line.ID, entity.MovementKindEntry, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, mov.Delta)
	assert.Equal(t, 25, mov.StockAfter)
	require.NotNil(t, mov.ActorID)
	assert.Equal(t, "u1", *mov.ActorID)

	_, err = record(t, f, "c1", line.ID, entity.MovementKindExit, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 30, insufficient.Requested)
	assert.Equal(t, 25, insufficient.Current)
	assert.Equal(t, line.ID, insufficient.LineID)

	assert.Equal(t, 25, f.line(t, b, p).Stock)
	movs, err := f.repos.Movements.ListByLine(context.Background(), line.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, 25, movs[0].StockAfter, "más reciente primero")
	assert.Equal(t, 5, movs[1].StockAfter)
}

func TestRecordMovement_DevolucionSuma(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	mov, err := record(t, f, "c1", line.ID, entity.MovementKindReturn, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, mov.Delta)
	assert.Equal(t, 3, f.line(t, b, p).Stock)
}

func TestRecordMovement_AjusteConSigno(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	_, err := record(t, f, "c1", line.ID, entity.MovementKindAdjustment, 10)
	require.NoError(t, err)
	mov, err := record(t, f, "c1", line.ID, entity.MovementKindAdjustment, -4)
	require.NoError(t, err)
	assert.Equal(t, 4, mov.Quantity)
	assert.Equal(t, -4, mov.Delta)
	assert.Equal(t, 6, mov.StockAfter)

	_, err = record(t, f, "c1", line.ID, entity.MovementKindAdjustment, -7)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 6, f.line(t, b, p).Stock)
}

func TestRecordMovement_Validaciones(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	tests := []struct {
		name    string
		company string
		lineID  string
		kind    string
		qty     int
		want    error
	}{
		{"tipo desconocido", "c1", line.ID, "transfer", 1, domain.ErrInvalidMovementKind},
		{"cantidad cero", "c1", line.ID, entity.MovementKindEntry, 0, domain.ErrInvalidQuantity},
		{"salida negativa", "c1", line.ID, entity.MovementKindExit, -2, domain.ErrInvalidQuantity},
		{"ajuste cero", "c1", line.ID, entity.MovementKindAdjustment, 0, domain.ErrInvalidQuantity},
		{"línea inexistente", "c1", "no-existe", entity.MovementKindEntry, 1, domain.ErrNotFound},
		{"línea vacía", "c1", "", entity.MovementKindEntry, 1, domain.ErrNotFound},
		{"otra empresa", "c2", line.ID, entity.MovementKindEntry, 1, domain.ErrNotFound},
		{"sin empresa", "", line.ID, entity.MovementKindEntry, 1, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := record(t, f, tt.company, tt.lineID, tt.kind, tt.qty)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, f.line(t, b, p).Stock)
	movs, _ := f.repos.Movements.ListByLine(context.Background(), line.ID, 0, 0)
	assert.Empty(t, movs)
}

func TestRecordMovement_EntradasConcurrentesNoSePierden(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	const n = 50
	after := make([]int, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			mov, err := record(t, f, "c1", line.ID, entity.MovementKindEntry, 1)
			if err != nil {
				return err
			}
			after[i] = mov.StockAfter
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, n, f.line(t, b, p).Stock)
	sort.Ints(after)
	for i, v := range after {
		assert.Equal(t, i+1, v, "cada movimiento ve el stock del anterior")
	}

	movs, err := f.repos.Movements.ListByLine(context.Background(), line.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, movs, n)
	sum := 0
	for i, m := range movs {
		sum += m.Delta
		assert.Equal(t, n-i, m.StockAfter, "orden del libro = orden de confirmación")
	}
	assert.Equal(t, n, sum)
}

func TestRecordMovement_SalidasConcurrentesNuncaNegativo(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)
	_, err := record(t, f, "c1", line.ID, entity.MovementKindEntry, 10)
	require.NoError(t, err)

	var ok, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := record(t, f, "c1", line.ID, entity.MovementKindExit, 1)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(15), rejected.Load())
	assert.Equal(t, 0, f.line(t, b, p).Stock)
}

func TestRecordMovement_LineasDistintasEnParalelo(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p1, _ := f.createProduct(t, "c1", "A")
	p2, _ := f.createProduct(t, "c1", "B")
	l1, l2 := f.line(t, b, p1), f.line(t, b, p2)

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		lineID := l1.ID
		if i%2 == 1 {
			lineID = l2.ID
		}
		g.Go(func() error {
			_, err := record(t, f, "c1", lineID, entity.MovementKindEntry, 2)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 20, f.line(t, b, p1).Stock)
	assert.Equal(t, 20, f.line(t, b, p2).Stock)
}

func TestRecordMovement_FalloAlInsertarRevierteStock(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	boom := errors.New("disco lleno")
	runner := wrapRunner{inner: f.runner, wrap: func(repos inventory.Repositories) inventory.Repositories {
		repos.Movements = failingMovements{err: boom}
		return repos
	}}
	ledger := inventory.NewStockLedgerUseCase(runner, nil, logger.Nop())

	_, err := ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
		CompanyID: "c1", InventoryLineID: line.ID, Kind: entity.MovementKindEntry, Quantity: 8,
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.line(t, b, p).Stock)
}

func TestRecordMovement_InvalidaCacheDelProducto(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	_, err := record(t, f, "c1", line.ID, entity.MovementKindEntry, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, f.cache.invalidated)

	_, err = record(t, f, "c1", line.ID, entity.MovementKindExit, 9)
	require.Error(t, err)
	assert.Len(t, f.cache.invalidated, 1, "un rechazo no invalida")
}

func TestRecordMovementFromRequest(t *testing.T) {
	f := newFixture(t)
	b, _ := f.createBranch(t, "c1", "Centro")
	p, _ := f.createProduct(t, "c1", "ARROZ")
	line := f.line(t, b, p)

	out, err := f.ledger.RecordMovementFromRequest(context.Background(), "c1", "", dto.RecordMovementRequest{
		InventoryLineID: line.ID,
		Kind:            entity.MovementKindEntry,
		Quantity:        4,
		Reference:       "OC-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, out.StockAfter)
	assert.Equal(t, "OC-1", out.Reference)
	assert.Nil(t, out.UserID)
}

type failingMovements struct {
	err error
}

func (m failingMovements) Create(context.Context, *entity.InventoryMovement) error { return m.err }
func (m failingMovements) GetByID(context.Context, string) (*entity.InventoryMovement, error) {
	return nil, m.err
}
func (m failingMovements) ListByLine(context.Context, string, int, int) ([]*entity.InventoryMovement, error) {
	return nil, m.err
}
