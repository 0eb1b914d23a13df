package entity

// PairFailure registra un par sucursal/producto que no pudo aprovisionarse.
type PairFailure struct {
	BranchID  string
	ProductID string
	Reason    string
}

// CoverageReport resultado de un barrido de aprovisionamiento.
type CoverageReport struct {
	Created         int
	BranchesScanned int
	ProductsScanned int
	Failures        []PairFailure
}
