package postgres

import "context"

// catalogLockSpace primer argumento de pg_advisory_xact_lock(int, int): separa estos bloqueos
// de cualquier otro bloqueo consultivo de la base.
const catalogLockSpace = 7301

// lockCompany toma el bloqueo consultivo del catálogo de la empresa. Se libera al terminar
// la transacción; así una sucursal y un producto de la misma empresa creados a la vez se
// confirman en orden y el segundo ve al primero al aprovisionar.
func lockCompany(ctx context.Context, q Querier, companyID string) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, catalogLockSpace, companyID); err != nil {
		return classify("lock company catalog", err)
	}
	return nil
}

// LockCompany serializa las altas del catálogo de la empresa (ver lockCompany).
func (r *BranchRepo) LockCompany(ctx context.Context, companyID string) error {
	return lockCompany(ctx, r.q, companyID)
}

// LockCompany serializa las altas del catálogo de la empresa (ver lockCompany).
func (r *ProductRepo) LockCompany(ctx context.Context, companyID string) error {
	return lockCompany(ctx, r.q, companyID)
}
