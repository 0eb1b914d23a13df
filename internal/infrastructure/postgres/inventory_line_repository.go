package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
)

var _ repository.InventoryLineRepository = (*InventoryLineRepo)(nil)

const lineColumns = `id, company_id, branch_id, product_id, stock, reorder_point, last_counted, created_at, updated_at`

// InventoryLineRepo implementación de InventoryLineRepository sobre PostgreSQL (usable con pool o tx).
type InventoryLineRepo struct {
	q Querier
}

// NewInventoryLineRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryLineRepository(q Querier) *InventoryLineRepo {
	return &InventoryLineRepo{q: q}
}

func scanLine(row pgx.Row) (*entity.InventoryLine, error) {
	var l entity.InventoryLine
	err := row.Scan(&l.ID, &l.CompanyID, &l.BranchID, &l.ProductID, &l.Stock, &l.ReorderPoint,
		&l.LastCounted, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *InventoryLineRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.InventoryLine, error) {
	l, err := scanLine(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return l, nil
}

// GetByID obtiene una línea por ID (nil si no existe).
func (r *InventoryLineRepo) GetByID(ctx context.Context, id string) (*entity.InventoryLine, error) {
	return r.getOne(ctx, "get inventory line",
		`SELECT `+lineColumns+` FROM inventory_lines WHERE id = $1`, id)
}

// GetByPair obtiene la línea de una sucursal y producto (nil si no existe).
func (r *InventoryLineRepo) GetByPair(ctx context.Context, branchID, productID string) (*entity.InventoryLine, error) {
	return r.getOne(ctx, "get inventory line by pair",
		`SELECT `+lineColumns+` FROM inventory_lines WHERE branch_id = $1 AND product_id = $2`, branchID, productID)
}

// GetForUpdate obtiene la línea y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
// Si otro movimiento tiene el bloqueo, espera hasta lock_timeout (error transitorio).
func (r *InventoryLineRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryLine, error) {
	query := `SELECT ` + lineColumns + ` FROM inventory_lines WHERE id = $1 FOR UPDATE`
	l, err := scanLine(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get inventory line for update", err)
	}
	return l, nil
}

// Ensure busca o crea la línea del par con un único INSERT ... ON CONFLICT DO NOTHING.
// Corre en su propio SAVEPOINT (o transacción, si q es el pool): un fallo aquí no aborta la
// transacción del llamador y los demás pares del lote siguen adelante.
func (r *InventoryLineRepo) Ensure(ctx context.Context, branchID, productID string, reorderPoint int) (*entity.InventoryLine, bool, error) {
	sp, err := r.q.Begin(ctx)
	if err != nil {
		return nil, false, classify("begin ensure inventory line", err)
	}
	defer func() { _ = sp.Rollback(context.WithoutCancel(ctx)) }()

	var branchCompany, productCompany string
	err = sp.QueryRow(ctx, `
		SELECT b.company_id, p.company_id
		FROM branches b, products p
		WHERE b.id = $1 AND p.id = $2`, branchID, productID).Scan(&branchCompany, &productCompany)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, domain.ErrNotFound
		}
		return nil, false, classify("check inventory line pair", err)
	}
	if branchCompany != productCompany {
		return nil, false, domain.ErrCrossTenant
	}

	now := time.Now()
	created := true
	line, err := scanLine(sp.QueryRow(ctx, `
		INSERT INTO inventory_lines (id, company_id, branch_id, product_id, stock, reorder_point, last_counted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $6, $6)
		ON CONFLICT (branch_id, product_id) DO NOTHING
		RETURNING `+lineColumns,
		uuid.New().String(), branchCompany, branchID, productID, reorderPoint, now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// La fila ya existía o la insertó una transacción concurrente que ya confirmó.
		created = false
		line, err = scanLine(sp.QueryRow(ctx,
			`SELECT `+lineColumns+` FROM inventory_lines WHERE branch_id = $1 AND product_id = $2`,
			branchID, productID))
	}
	if err != nil {
		return nil, false, classify("ensure inventory line", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, false, classify("commit ensure inventory line", err)
	}
	return line, created, nil
}

// UpdateStock persiste stock y last_counted. La restricción CHECK (stock >= 0) es la última barrera.
func (r *InventoryLineRepo) UpdateStock(ctx context.Context, line *entity.InventoryLine) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE inventory_lines
		SET stock = $2, last_counted = $3, updated_at = $4
		WHERE id = $1`,
		line.ID, line.Stock, line.LastCounted, line.UpdatedAt)
	if err != nil {
		return classify("update inventory line stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateReorderPoint cambia el punto de reorden y devuelve la línea actualizada.
// El stock no se toca: solo cambia vía movimientos.
func (r *InventoryLineRepo) UpdateReorderPoint(ctx context.Context, id string, reorderPoint int) (*entity.InventoryLine, error) {
	if reorderPoint < 0 {
		return nil, fmt.Errorf("update reorder point %s: %w", id, domain.ErrInvalidInput)
	}
	line, err := r.getOne(ctx, "update reorder point", `
		UPDATE inventory_lines SET reorder_point = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+lineColumns, id, reorderPoint, time.Now())
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.ErrNotFound
	}
	return line, nil
}

func (r *InventoryLineRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.InventoryLine, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var list []*entity.InventoryLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory line: %w", err)
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return list, nil
}

// ListByBranch lista las líneas de una sucursal ordenadas por nombre de producto.
func (r *InventoryLineRepo) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.InventoryLine, error) {
	return r.list(ctx, "list inventory lines by branch", `
		SELECT l.id, l.company_id, l.branch_id, l.product_id, l.stock, l.reorder_point, l.last_counted, l.created_at, l.updated_at
		FROM inventory_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.branch_id = $1
		ORDER BY p.name, l.id
		LIMIT $2 OFFSET $3`, branchID, limit, offset)
}

// ListByProduct lista las líneas de un producto en todas sus sucursales.
func (r *InventoryLineRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.InventoryLine, error) {
	return r.list(ctx, "list inventory lines by product",
		`SELECT `+lineColumns+` FROM inventory_lines WHERE product_id = $1 ORDER BY branch_id`, productID)
}

// ListReorderDue devuelve las líneas con stock <= reorder_point, mayor déficit primero.
// Si branchID es vacío, considera todas las sucursales de la empresa.
func (r *InventoryLineRepo) ListReorderDue(ctx context.Context, companyID, branchID string) ([]*entity.InventoryLine, error) {
	query := `SELECT ` + lineColumns + ` FROM inventory_lines WHERE company_id = $1 AND stock <= reorder_point`
	args := []any{companyID}
	if branchID != "" {
		query += ` AND branch_id = $2`
		args = append(args, branchID)
	}
	query += ` ORDER BY (reorder_point - stock) DESC, id`
	return r.list(ctx, "list reorder due lines", query, args...)
}
