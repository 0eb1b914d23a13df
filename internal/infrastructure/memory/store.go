// Package memory adaptador de persistencia en proceso (STORAGE_DRIVER=memory y tests).
// Emula lo que PostgreSQL garantiza al resto de la aplicación: bloqueo por línea hasta el fin
// de la transacción, unicidad del par (sucursal, producto), stock no negativo y orden de
// confirmación del libro de movimientos.
package memory

import (
	"sync"

	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
)

type pairKey struct {
	branchID  string
	productID string
}

type skuKey struct {
	companyID string
	sku       string
}

// Store estado compartido. Todo acceso a los mapas pasa por mu; los bloqueos de línea y de
// catálogo (locks) se toman sin mu y se mantienen hasta el fin de la transacción.
type Store struct {
	mu        sync.Mutex
	branches  map[string]entity.Branch
	products  map[string]entity.Product
	skus      map[skuKey]string
	lines     map[string]entity.InventoryLine
	pairs     map[pairKey]string
	movements map[string][]entity.InventoryMovement // por línea, en orden de confirmación
	byID      map[string]movementRef
	locks     map[string]chan struct{}
}

type movementRef struct {
	lineID string
	index  int
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		branches:  make(map[string]entity.Branch),
		products:  make(map[string]entity.Product),
		skus:      make(map[skuKey]string),
		lines:     make(map[string]entity.InventoryLine),
		pairs:     make(map[pairKey]string),
		movements: make(map[string][]entity.InventoryMovement),
		byID:      make(map[string]movementRef),
		locks:     make(map[string]chan struct{}),
	}
}

// Repositories repos fuera de transacción: cada escritura se confirma de inmediato.
func (s *Store) Repositories() inventory.Repositories {
	return newRepositories(&session{store: s})
}

func newRepositories(sess *session) inventory.Repositories {
	return inventory.Repositories{
		Lines:     &lineRepo{sess: sess},
		Movements: &movementRepo{sess: sess},
		Branches:  &branchRepo{sess: sess},
		Products:  &productRepo{sess: sess},
	}
}

// lockFor devuelve el semáforo de key (id de línea o "company:<id>"), creándolo si hace falta.
func (s *Store) lockFor(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// dropLinesLocked borra las líneas que cumplen match junto con su libro, como el ON DELETE
// CASCADE del esquema. Solo lo usa el rollback de un alta del catálogo que otra sesión alcanzó
// a ver antes del commit. Requiere mu.
func (s *Store) dropLinesLocked(match func(entity.InventoryLine) bool) {
	for id, l := range s.lines {
		if !match(l) {
			continue
		}
		for _, m := range s.movements[id] {
			delete(s.byID, m.ID)
		}
		delete(s.movements, id)
		delete(s.pairs, pairKey{branchID: l.BranchID, productID: l.ProductID})
		delete(s.lines, id)
	}
}

// appendMovementLocked agrega al libro de la línea. Requiere mu.
func (s *Store) appendMovementLocked(m entity.InventoryMovement) {
	list := s.movements[m.InventoryLineID]
	s.byID[m.ID] = movementRef{lineID: m.InventoryLineID, index: len(list)}
	s.movements[m.InventoryLineID] = append(list, m)
}
