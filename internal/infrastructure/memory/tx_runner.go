package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks con semántica de transacción sobre un Store.
type TxRunner struct {
	store       *Store
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout > 0 limita la espera por el bloqueo de una línea.
func NewTxRunner(store *Store, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{store: store, lockTimeout: lockTimeout}
}

// tx estado de una transacción en curso.
// Líneas nuevas, cambios de línea y movimientos se acumulan y se publican juntos al confirmar.
// Las altas del catálogo se aplican de inmediato (otras sesiones las ven antes del commit, a
// diferencia de PostgreSQL) y se deshacen con undo si la transacción falla.
type tx struct {
	lockTimeout  time.Duration
	held         map[string]chan struct{}
	created      map[string]entity.InventoryLine
	createdPairs map[pairKey]string
	lines        map[string]entity.InventoryLine
	movements    []entity.InventoryMovement
	undo         []func()
}

// session une un Store con la transacción activa (nil = autocommit).
type session struct {
	store *Store
	tx    *tx
}

// Run ejecuta fn con repos atados a una nueva transacción. Commit si fn devuelve nil;
// si devuelve error, entra en pánico o el ctx se cancela, se deshace todo.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w: %w", domain.ErrTransientStorage, err)
	}
	t := &tx{
		lockTimeout:  r.lockTimeout,
		held:         make(map[string]chan struct{}),
		created:      make(map[string]entity.InventoryLine),
		createdPairs: make(map[pairKey]string),
		lines:        make(map[string]entity.InventoryLine),
	}
	sess := &session{store: r.store, tx: t}
	committed := false
	defer func() {
		if !committed {
			r.rollback(t)
		}
		t.release()
	}()

	if err := fn(newRepositories(sess)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w: %w", domain.ErrTransientStorage, err)
	}
	r.commit(t)
	committed = true
	return nil
}

func (r *TxRunner) commit(t *tx) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, id := range t.createdPairs {
		s.lines[id] = t.created[id]
		s.pairs[key] = id
	}
	for id, staged := range t.lines {
		if _, ok := s.lines[id]; ok {
			s.lines[id] = staged
		}
	}
	for _, m := range t.movements {
		if _, ok := s.lines[m.InventoryLineID]; ok {
			s.appendMovementLocked(m)
		}
	}
}

func (r *TxRunner) rollback(t *tx) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

// release libera los bloqueos de línea tomados por la transacción.
func (t *tx) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

// lock toma el bloqueo exclusivo de key (línea, par o catálogo) hasta el fin de la transacción.
func (sess *session) lock(ctx context.Context, key string) error {
	t := sess.tx
	if _, ok := t.held[key]; ok {
		return nil
	}
	l := sess.store.lockFor(key)
	if err := wait(ctx, l, key, t.lockTimeout); err != nil {
		return err
	}
	t.held[key] = l
	return nil
}

// acquire toma key durante una operación. En una tx equivale a lock y release no hace nada;
// en autocommit espera a que ninguna tx tenga key y la suelta al llamar release.
func (sess *session) acquire(ctx context.Context, key string) (release func(), err error) {
	if sess.tx != nil {
		return func() {}, sess.lock(ctx, key)
	}
	l := sess.store.lockFor(key)
	if err := wait(ctx, l, key, 0); err != nil {
		return nil, err
	}
	return func() { <-l }, nil
}

func wait(ctx context.Context, l chan struct{}, key string, lockTimeout time.Duration) error {
	var timeout <-chan time.Time
	if lockTimeout > 0 {
		timer := time.NewTimer(lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock %s: %w: %w", key, domain.ErrTransientStorage, ctx.Err())
	case <-timeout:
		return fmt.Errorf("lock %s: %w", key, domain.ErrTransientStorage)
	}
}

// lineLocked línea confirmada o creada por la tx propia. Requiere mu.
func (sess *session) lineLocked(id string) (entity.InventoryLine, bool) {
	if l, ok := sess.store.lines[id]; ok {
		return l, true
	}
	if t := sess.tx; t != nil {
		l, ok := t.created[id]
		return l, ok
	}
	return entity.InventoryLine{}, false
}

// pairLocked línea del par, confirmada o creada por la tx propia. Requiere mu.
func (sess *session) pairLocked(key pairKey) (entity.InventoryLine, bool) {
	if id, ok := sess.store.pairs[key]; ok {
		return sess.store.lines[id], true
	}
	if t := sess.tx; t != nil {
		if id, ok := t.createdPairs[key]; ok {
			return t.created[id], true
		}
	}
	return entity.InventoryLine{}, false
}

// lockCompany bloqueo del catálogo de la empresa. Sin tx no hace nada, como en PostgreSQL.
func (sess *session) lockCompany(ctx context.Context, companyID string) error {
	if sess.tx == nil {
		return nil
	}
	return sess.lock(ctx, "company:"+companyID)
}

// onRollback registra una acción de deshacer (se ejecuta con mu tomado). Sin tx no hace nada.
func (sess *session) onRollback(fn func()) {
	if sess.tx != nil {
		sess.tx.undo = append(sess.tx.undo, fn)
	}
}
