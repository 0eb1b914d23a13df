package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/inventory"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	"github.com/rs/zerolog"
)

// StockLedgerUseCase registra movimientos en el libro de stock de forma transaccional:
// bloqueo de la fila de la línea (SELECT FOR UPDATE), actualización del contador e inserción
// del movimiento en la misma transacción, con Commit/Rollback.
type StockLedgerUseCase struct {
	txRunner TxRunner
	cache    StockCache
	log      *logger.Logger
	now      func() time.Time
}

// NewStockLedgerUseCase construye el caso de uso. cache puede ser nil.
func NewStockLedgerUseCase(txRunner TxRunner, cache StockCache, log *logger.Logger) *StockLedgerUseCase {
	if cache == nil {
		cache = NopStockCache{}
	}
	return &StockLedgerUseCase{txRunner: txRunner, cache: cache, log: log, now: time.Now}
}

// RecordMovementInput entrada para registrar un movimiento.
// Quantity >= 1 salvo en adjustment, donde un valor negativo corrige a la baja.
type RecordMovementInput struct {
	CompanyID       string
	ActorID         string // vacío = movimiento sin usuario
	InventoryLineID string
	Kind            string
	Quantity        int
	Reference       string
	Notes           string
}

// RecordMovement aplica un movimiento a una línea de inventario.
// La línea queda bloqueada durante toda la transacción: dos movimientos sobre la misma línea
// nunca intercalan su lectura-modificación-escritura; líneas distintas no se bloquean entre sí.
// Los errores transitorios (timeout de lock, serialización) se devuelven al llamador sin reintentar.
func (uc *StockLedgerUseCase) RecordMovement(ctx context.Context, in RecordMovementInput) (*entity.InventoryMovement, error) {
	if in.CompanyID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := inventory.ValidateMovement(in.Kind, in.Quantity); err != nil {
		return nil, err
	}
	if in.InventoryLineID == "" {
		return nil, domain.ErrNotFound
	}

	var (
		movement  *entity.InventoryMovement
		productID string
	)
	err := uc.txRunner.Run(ctx, func(repos Repositories) error {
		line, err := repos.Lines.GetForUpdate(ctx, in.InventoryLineID)
		if err != nil {
			return err
		}
		// Una línea de otra empresa se reporta como inexistente.
		if line == nil || line.CompanyID != in.CompanyID {
			return domain.ErrNotFound
		}
		delta, newStock, err := inventory.ApplyMovement(line.ID, line.Stock, in.Kind, in.Quantity)
		if err != nil {
			return err
		}

		now := uc.now()
		line.Stock = newStock
		line.LastCounted = now
		line.UpdatedAt = now
		if err := repos.Lines.UpdateStock(ctx, line); err != nil {
			return err
		}

		mov := &entity.InventoryMovement{
			ID:              uuid.New().String(),
			InventoryLineID: line.ID,
			Kind:            in.Kind,
			Quantity:        inventory.AbsQuantity(in.Quantity),
			Delta:           delta,
			StockAfter:      newStock,
			Reference:       in.Reference,
			Notes:           in.Notes,
			CreatedAt:       now,
		}
		if in.ActorID != "" {
			actor := in.ActorID
			mov.ActorID = &actor
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		movement = mov
		productID = line.ProductID
		return nil
	})
	if err != nil {
		uc.logFailure(in, err)
		return nil, err
	}

	uc.cache.InvalidateProduct(ctx, in.CompanyID, productID)
	uc.log.Info().
		Str("company_id", in.CompanyID).
		Str("line_id", movement.InventoryLineID).
		Str("movement_id", movement.ID).
		Str("kind", movement.Kind).
		Int("delta", movement.Delta).
		Int("stock", movement.StockAfter).
		Msg("movimiento registrado")
	return movement, nil
}

func (uc *StockLedgerUseCase) logFailure(in RecordMovementInput, err error) {
	level := zerolog.ErrorLevel
	switch {
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrStockLimit), errors.Is(err, domain.ErrNotFound):
		level = zerolog.InfoLevel
	case errors.Is(err, domain.ErrTransientStorage):
		level = zerolog.WarnLevel
	}
	uc.log.WithLevel(level).
		Err(err).
		Str("company_id", in.CompanyID).
		Str("line_id", in.InventoryLineID).
		Str("kind", in.Kind).
		Int("quantity", in.Quantity).
		Msg("movimiento rechazado")
}
