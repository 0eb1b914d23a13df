package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

const movementColumns = `id, inventory_line_id, kind, quantity, delta, stock_after, reference, notes, user_id, created_at`

// InventoryMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste un movimiento. seq lo asigna la base y fija el orden de confirmación.
func (r *InventoryMovementRepo) Create(ctx context.Context, movement *entity.InventoryMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		movement.ID, movement.InventoryLineID, movement.Kind, movement.Quantity, movement.Delta,
		movement.StockAfter, movement.Reference, movement.Notes, movement.ActorID, movement.CreatedAt,
	)
	if err != nil {
		return classify("insert inventory movement", err)
	}
	return nil
}

func scanMovement(row pgx.Row) (*entity.InventoryMovement, error) {
	var m entity.InventoryMovement
	err := row.Scan(&m.ID, &m.InventoryLineID, &m.Kind, &m.Quantity, &m.Delta, &m.StockAfter,
		&m.Reference, &m.Notes, &m.ActorID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID obtiene un movimiento por ID (nil si no existe).
func (r *InventoryMovementRepo) GetByID(ctx context.Context, id string) (*entity.InventoryMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx,
		`SELECT `+movementColumns+` FROM inventory_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get inventory movement", err)
	}
	return m, nil
}

// ListByLine lista los movimientos de una línea, más recientes primero (por seq).
func (r *InventoryMovementRepo) ListByLine(ctx context.Context, lineID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM inventory_movements
		WHERE inventory_line_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`, lineID, limit, offset)
	if err != nil {
		return nil, classify("list inventory movements", err)
	}
	defer rows.Close()
	var list []*entity.InventoryMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory movement: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list inventory movements", err)
	}
	return list, nil
}
