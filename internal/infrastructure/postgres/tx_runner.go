package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
)

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// TxStarter inicia transacciones (*pgxpool.Pool lo implementa).
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	db          TxStarter
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout > 0 limita la espera por bloqueos de fila
// (SET LOCAL lock_timeout); al vencerse la transacción se revierte completa.
func NewTxRunner(db TxStarter, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{db: db, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repositories) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classify("begin transaction", err)
	}
	// Rollback es no-op tras Commit; sin cancelación para poder revertir aunque ctx haya vencido.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return classify("set lock_timeout", err)
		}
	}

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// NewRepositories construye el juego de repositorios sobre q (pool o tx).
func NewRepositories(q Querier) inventory.Repositories {
	return inventory.Repositories{
		Lines:     NewInventoryLineRepository(q),
		Movements: NewInventoryMovementRepository(q),
		Branches:  NewBranchRepository(q),
		Products:  NewProductRepository(q),
	}
}
