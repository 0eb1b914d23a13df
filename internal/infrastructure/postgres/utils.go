package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/inventario-stock/internal/domain"
)

// Códigos SQLSTATE relevantes.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeInvalidText          = "22P02" // p. ej. UUID mal formado
	codeNumericOutOfRange    = "22003" // desborde de INTEGER
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03" // lock_timeout
	codeQueryCanceled        = "57014" // statement_timeout / cancelación
)

// isInvalidText detecta un identificador mal formado (22P02): se trata como "no existe".
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidText
}

// classify envuelve err con el error de dominio que corresponda, conservando el original.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrTransientStorage, err)
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicate, err)
		case codeInvalidText, codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
		case codeNumericOutOfRange:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrStockLimit, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransientStorage, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
