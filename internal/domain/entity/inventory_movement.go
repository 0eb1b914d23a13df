package entity

import "time"

// Tipos de movimiento de inventario.
const (
	MovementKindEntry      = "entry"      // entrada (compra a proveedor)
	MovementKindExit       = "exit"       // salida (venta)
	MovementKindAdjustment = "adjustment" // ajuste con signo
	MovementKindReturn     = "return"     // devolución
)

// IsValidMovementKind verifica que kind sea uno de los cuatro tipos definidos.
func IsValidMovementKind(kind string) bool {
	switch kind {
	case MovementKindEntry, MovementKindExit, MovementKindAdjustment, MovementKindReturn:
		return true
	}
	return false
}

// InventoryMovement es una entrada inmutable del libro de stock.
// Quantity siempre es >= 1; Delta es el cambio con signo aplicado al stock de la línea.
type InventoryMovement struct {
	ID              string
	InventoryLineID string
	Kind            string
	Quantity        int
	Delta           int
	StockAfter      int
	Reference       string
	Notes           string
	ActorID         *string // nil si el usuario fue eliminado o el movimiento es del sistema
	CreatedAt       time.Time
}
