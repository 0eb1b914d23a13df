package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
)

var (
	_ repository.InventoryLineRepository     = (*lineRepo)(nil)
	_ repository.InventoryMovementRepository = (*movementRepo)(nil)
	_ repository.BranchRepository            = (*branchRepo)(nil)
	_ repository.ProductRepository           = (*productRepo)(nil)
)

// page recorta [offset, offset+limit). limit <= 0 = sin límite.
func page(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}

// --- líneas ---

type lineRepo struct {
	sess *session
}

// viewLocked copia de la línea con los cambios pendientes de la tx propia. Requiere mu.
func (r *lineRepo) viewLocked(l entity.InventoryLine) *entity.InventoryLine {
	if t := r.sess.tx; t != nil {
		if staged, ok := t.lines[l.ID]; ok {
			return &staged
		}
	}
	return &l
}

func (r *lineRepo) GetByID(_ context.Context, id string) (*entity.InventoryLine, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := r.sess.lineLocked(id)
	if !ok {
		return nil, nil
	}
	return r.viewLocked(l), nil
}

func (r *lineRepo) GetByPair(_ context.Context, branchID, productID string) (*entity.InventoryLine, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := r.sess.pairLocked(pairKey{branchID: branchID, productID: productID})
	if !ok {
		return nil, nil
	}
	return r.viewLocked(l), nil
}

func (r *lineRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryLine, error) {
	line, err := r.GetByID(ctx, id)
	if err != nil || line == nil || r.sess.tx == nil {
		return line, err
	}
	if err := r.sess.lock(ctx, id); err != nil {
		return nil, err
	}
	// Releer: otra transacción pudo confirmar mientras esperábamos el bloqueo.
	return r.GetByID(ctx, id)
}

// Ensure dentro de una tx deja la línea nueva solo visible para esa tx hasta el commit.
// El bloqueo del par hace esperar a un segundo Ensure del mismo par, como la restricción
// única en PostgreSQL: al obtenerlo relee y devuelve la fila del ganador.
func (r *lineRepo) Ensure(ctx context.Context, branchID, productID string, reorderPoint int) (*entity.InventoryLine, bool, error) {
	key := pairKey{branchID: branchID, productID: productID}
	if line, found, err := r.findPair(key); err != nil || found {
		return line, false, err
	}
	release, err := r.sess.acquire(ctx, "pair:"+branchID+"/"+productID)
	if err != nil {
		return nil, false, err
	}
	defer release()

	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	branch, err := r.checkPairLocked(key)
	if err != nil {
		return nil, false, err
	}
	if l, ok := r.sess.pairLocked(key); ok {
		return r.viewLocked(l), false, nil
	}

	now := time.Now()
	line := entity.InventoryLine{
		ID:           uuid.New().String(),
		CompanyID:    branch.CompanyID,
		BranchID:     branchID,
		ProductID:    productID,
		ReorderPoint: reorderPoint,
		LastCounted:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if t := r.sess.tx; t != nil {
		t.created[line.ID] = line
		t.createdPairs[key] = line.ID
	} else {
		s.lines[line.ID] = line
		s.pairs[key] = line.ID
	}
	return &line, true, nil
}

// findPair valida el par y devuelve su línea si ya existe.
func (r *lineRepo) findPair(key pairKey) (*entity.InventoryLine, bool, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := r.checkPairLocked(key); err != nil {
		return nil, false, err
	}
	if l, ok := r.sess.pairLocked(key); ok {
		return r.viewLocked(l), true, nil
	}
	return nil, false, nil
}

// checkPairLocked exige que sucursal y producto existan y sean de la misma empresa. Requiere mu.
func (r *lineRepo) checkPairLocked(key pairKey) (entity.Branch, error) {
	s := r.sess.store
	branch, okB := s.branches[key.branchID]
	product, okP := s.products[key.productID]
	if !okB || !okP {
		return entity.Branch{}, domain.ErrNotFound
	}
	if branch.CompanyID != product.CompanyID {
		return entity.Branch{}, domain.ErrCrossTenant
	}
	return branch, nil
}

func (r *lineRepo) UpdateStock(ctx context.Context, line *entity.InventoryLine) error {
	if line.Stock < 0 {
		return fmt.Errorf("update inventory line %s: stock negativo (%d)", line.ID, line.Stock)
	}
	return r.update(ctx, line.ID, func(cur *entity.InventoryLine) {
		cur.Stock = line.Stock
		cur.LastCounted = line.LastCounted
		cur.UpdatedAt = line.UpdatedAt
	})
}

func (r *lineRepo) UpdateReorderPoint(ctx context.Context, id string, reorderPoint int) (*entity.InventoryLine, error) {
	if reorderPoint < 0 {
		return nil, fmt.Errorf("update reorder point %s: %w", id, domain.ErrInvalidInput)
	}
	var out entity.InventoryLine
	err := r.update(ctx, id, func(cur *entity.InventoryLine) {
		cur.ReorderPoint = reorderPoint
		cur.UpdatedAt = time.Now()
		out = *cur
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// update modifica la línea con su bloqueo tomado. En una tx el cambio queda pendiente hasta
// el commit; en autocommit se publica al volver.
func (r *lineRepo) update(ctx context.Context, id string, apply func(*entity.InventoryLine)) error {
	release, err := r.sess.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	base, ok := r.sess.lineLocked(id)
	if !ok {
		return domain.ErrNotFound
	}
	cur := *r.viewLocked(base)
	apply(&cur)
	if t := r.sess.tx; t != nil {
		t.lines[id] = cur
		return nil
	}
	s.lines[id] = cur
	return nil
}

func (r *lineRepo) collect(match func(entity.InventoryLine) bool) []*entity.InventoryLine {
	s := r.sess.store
	var list []*entity.InventoryLine
	add := func(l entity.InventoryLine) {
		if v := r.viewLocked(l); match(*v) {
			list = append(list, v)
		}
	}
	for _, l := range s.lines {
		add(l)
	}
	if t := r.sess.tx; t != nil {
		for _, l := range t.created {
			add(l)
		}
	}
	return list
}

func (r *lineRepo) ListByBranch(_ context.Context, branchID string, limit, offset int) ([]*entity.InventoryLine, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	list := r.collect(func(l entity.InventoryLine) bool { return l.BranchID == branchID })
	sort.Slice(list, func(i, j int) bool {
		ni, nj := s.products[list[i].ProductID].Name, s.products[list[j].ProductID].Name
		if ni != nj {
			return ni < nj
		}
		return list[i].ID < list[j].ID
	})
	start, end := page(len(list), limit, offset)
	return list[start:end], nil
}

func (r *lineRepo) ListByProduct(_ context.Context, productID string) ([]*entity.InventoryLine, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	list := r.collect(func(l entity.InventoryLine) bool { return l.ProductID == productID })
	sort.Slice(list, func(i, j int) bool { return list[i].BranchID < list[j].BranchID })
	return list, nil
}

func (r *lineRepo) ListReorderDue(_ context.Context, companyID, branchID string) ([]*entity.InventoryLine, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	list := r.collect(func(l entity.InventoryLine) bool {
		return l.CompanyID == companyID && (branchID == "" || l.BranchID == branchID) && l.NeedsReorder()
	})
	sort.Slice(list, func(i, j int) bool {
		di, dj := list[i].ReorderPoint-list[i].Stock, list[j].ReorderPoint-list[j].Stock
		if di != dj {
			return di > dj
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// --- movimientos ---

type movementRepo struct {
	sess *session
}

func (r *movementRepo) Create(_ context.Context, m *entity.InventoryMovement) error {
	if !entity.IsValidMovementKind(m.Kind) || m.Quantity < 1 || m.StockAfter < 0 {
		return fmt.Errorf("insert inventory movement: %w", domain.ErrInvalidInput)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := r.sess.lineLocked(m.InventoryLineID); !ok {
		return fmt.Errorf("insert inventory movement: %w", domain.ErrNotFound)
	}
	if _, ok := s.byID[m.ID]; ok {
		return fmt.Errorf("insert inventory movement: %w", domain.ErrDuplicate)
	}
	if r.sess.tx != nil {
		r.sess.tx.movements = append(r.sess.tx.movements, *m)
		return nil
	}
	s.appendMovementLocked(*m)
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.InventoryMovement, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.byID[id]; ok {
		m := s.movements[ref.lineID][ref.index]
		return &m, nil
	}
	if t := r.sess.tx; t != nil {
		for _, m := range t.movements {
			if m.ID == id {
				return &m, nil
			}
		}
	}
	return nil, nil
}

// ListByLine más recientes primero: los pendientes de la tx propia van delante de los confirmados.
func (r *movementRepo) ListByLine(_ context.Context, lineID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*entity.InventoryMovement
	if t := r.sess.tx; t != nil {
		for i := len(t.movements) - 1; i >= 0; i-- {
			if m := t.movements[i]; m.InventoryLineID == lineID {
				list = append(list, &m)
			}
		}
	}
	committed := s.movements[lineID]
	for i := len(committed) - 1; i >= 0; i-- {
		m := committed[i]
		list = append(list, &m)
	}
	start, end := page(len(list), limit, offset)
	return list[start:end], nil
}

// --- sucursales ---

type branchRepo struct {
	sess *session
}

func (r *branchRepo) Create(_ context.Context, b *entity.Branch) error {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[b.ID]; ok {
		return fmt.Errorf("insert branch: %w", domain.ErrDuplicate)
	}
	s.branches[b.ID] = *b
	id := b.ID
	r.sess.onRollback(func() {
		delete(s.branches, id)
		s.dropLinesLocked(func(l entity.InventoryLine) bool { return l.BranchID == id })
	})
	return nil
}

func (r *branchRepo) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *branchRepo) LockCompany(ctx context.Context, companyID string) error {
	return r.sess.lockCompany(ctx, companyID)
}

func (r *branchRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.Branch, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*entity.Branch
	for _, b := range s.branches {
		if b.CompanyID == companyID {
			list = append(list, &b)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// --- productos ---

type productRepo struct {
	sess *session
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	key := skuKey{companyID: p.CompanyID, sku: p.SKU}
	if _, ok := s.products[p.ID]; ok {
		return fmt.Errorf("insert product: %w", domain.ErrDuplicate)
	}
	if _, ok := s.skus[key]; ok {
		return fmt.Errorf("insert product: %w", domain.ErrDuplicate)
	}
	s.products[p.ID] = *p
	s.skus[key] = p.ID
	id := p.ID
	r.sess.onRollback(func() {
		delete(s.products, id)
		delete(s.skus, key)
		s.dropLinesLocked(func(l entity.InventoryLine) bool { return l.ProductID == id })
	})
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) GetByCompanyAndSKU(_ context.Context, companyID, sku string) (*entity.Product, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.skus[skuKey{companyID: companyID, sku: sku}]
	if !ok {
		return nil, nil
	}
	p := s.products[id]
	return &p, nil
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	oldKey := skuKey{companyID: prev.CompanyID, sku: prev.SKU}
	newKey := skuKey{companyID: prev.CompanyID, sku: p.SKU}
	if newKey != oldKey {
		if _, taken := s.skus[newKey]; taken {
			return fmt.Errorf("update product: %w", domain.ErrDuplicate)
		}
		delete(s.skus, oldKey)
		s.skus[newKey] = p.ID
	}
	next := prev
	next.SKU = p.SKU
	next.Name = p.Name
	next.UpdatedAt = p.UpdatedAt
	s.products[p.ID] = next
	r.sess.onRollback(func() {
		delete(s.skus, newKey)
		s.skus[oldKey] = prev.ID
		s.products[prev.ID] = prev
	})
	return nil
}

func (r *productRepo) LockCompany(ctx context.Context, companyID string) error {
	return r.sess.lockCompany(ctx, companyID)
}

func (r *productRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.Product, error) {
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*entity.Product
	for _, p := range s.products {
		if p.CompanyID == companyID {
			list = append(list, &p)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}
