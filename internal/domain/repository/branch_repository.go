package repository

import (
	"context"

	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

// BranchRepository define el puerto de persistencia para Branch (DIP).
type BranchRepository interface {
	Create(ctx context.Context, branch *entity.Branch) error
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Branch, error)

	// LockCompany serializa las escrituras del catálogo de una empresa hasta el fin de la
	// transacción. Fuera de una transacción no retiene nada.
	LockCompany(ctx context.Context, companyID string) error
}
