package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInvalidQuantity     = errors.New("cantidad inválida")
	ErrInvalidMovementKind = errors.New("tipo de movimiento inválido")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrStockLimit          = errors.New("el stock resultante supera el máximo admitido")
	ErrCrossTenant         = errors.New("sucursal y producto pertenecen a empresas distintas")
	ErrTransientStorage    = errors.New("error transitorio de almacenamiento")
)

// InsufficientStockError detalla una salida rechazada. errors.Is(err, ErrInsufficientStock) es true.
type InsufficientStockError struct {
	LineID    string
	Requested int
	Current   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente en línea %s: solicitado %d, disponible %d", e.LineID, e.Requested, e.Current)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
