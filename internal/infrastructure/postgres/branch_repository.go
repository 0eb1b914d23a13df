package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
)

var _ repository.BranchRepository = (*BranchRepo)(nil)

// BranchRepo implementación del puerto BranchRepository sobre PostgreSQL.
type BranchRepo struct {
	q Querier
}

// NewBranchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

// Create persiste una nueva sucursal.
func (r *BranchRepo) Create(ctx context.Context, b *entity.Branch) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO branches (id, company_id, name, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.CompanyID, b.Name, b.Address, b.IsActive, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return classify("insert branch", err)
	}
	return nil
}

// GetByID obtiene una sucursal por ID (nil si no existe).
func (r *BranchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	var b entity.Branch
	err := r.q.QueryRow(ctx, `
		SELECT id, company_id, name, address, is_active, created_at, updated_at
		FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.CompanyID, &b.Name, &b.Address, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, nil
		}
		return nil, classify("get branch", err)
	}
	return &b, nil
}

// ListByCompany lista las sucursales de una empresa ordenadas por nombre.
func (r *BranchRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Branch, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, company_id, name, address, is_active, created_at, updated_at
		FROM branches WHERE company_id = $1 ORDER BY name, id`, companyID)
	if err != nil {
		return nil, classify("list branches", err)
	}
	defer rows.Close()
	var list []*entity.Branch
	for rows.Next() {
		var b entity.Branch
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.Name, &b.Address, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		list = append(list, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list branches", err)
	}
	return list, nil
}
