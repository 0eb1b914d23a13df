package inventory

import (
	"context"

	"github.com/jhoicas/inventario-stock/internal/application/dto"
)

// RecordMovementFromRequest adapta el request HTTP al caso de uso RecordMovement.
// companyID y userID salen del token, nunca del cuerpo.
func (uc *StockLedgerUseCase) RecordMovementFromRequest(ctx context.Context, companyID, userID string, in dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	mov, err := uc.RecordMovement(ctx, RecordMovementInput{
		CompanyID:       companyID,
		ActorID:         userID,
		InventoryLineID: in.InventoryLineID,
		Kind:            in.Kind,
		Quantity:        in.Quantity,
		Reference:       in.Reference,
		Notes:           in.Notes,
	})
	if err != nil {
		return nil, err
	}
	return dto.ToMovementResponse(mov), nil
}
