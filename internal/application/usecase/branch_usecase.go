package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-stock/internal/application/dto"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/internal/domain/repository"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	"github.com/rs/zerolog"
)

// BranchUseCase casos de uso de sucursales. Crear una sucursal aprovisiona sus líneas de
// inventario en la misma transacción.
type BranchUseCase struct {
	txRunner    inventory.TxRunner
	provisioner *inventory.Provisioner
	repo        repository.BranchRepository
	log         *logger.Logger
}

// NewBranchUseCase construye el caso de uso.
func NewBranchUseCase(txRunner inventory.TxRunner, provisioner *inventory.Provisioner, repo repository.BranchRepository, log *logger.Logger) *BranchUseCase {
	return &BranchUseCase{txRunner: txRunner, provisioner: provisioner, repo: repo, log: log}
}

// Create crea una sucursal y asegura una línea por cada producto de la empresa.
// Los pares que fallen quedan para la reconciliación; no revierten la sucursal.
func (uc *BranchUseCase) Create(ctx context.Context, companyID string, in dto.CreateBranchRequest) (*dto.BranchResponse, error) {
	if companyID == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	branch := &entity.Branch{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      strings.TrimSpace(in.Name),
		Address:   in.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var report entity.CoverageReport
	err := uc.txRunner.Run(ctx, func(repos inventory.Repositories) error {
		if err := repos.Branches.LockCompany(ctx, companyID); err != nil {
			return err
		}
		if err := repos.Branches.Create(ctx, branch); err != nil {
			return err
		}
		r, err := uc.provisioner.OnBranchCreated(ctx, repos, branch)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCoverage(uc.log, "sucursal creada", companyID, report)
	out := toBranchResponse(branch)
	out.InventoryLinesCreated = report.Created
	return out, nil
}

// List lista las sucursales de la empresa.
func (uc *BranchUseCase) List(ctx context.Context, companyID string) (*dto.BranchListResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BranchResponse, 0, len(list))
	for _, b := range list {
		items = append(items, *toBranchResponse(b))
	}
	return &dto.BranchListResponse{Items: items}, nil
}

func toBranchResponse(b *entity.Branch) *dto.BranchResponse {
	if b == nil {
		return nil
	}
	return &dto.BranchResponse{
		ID:        b.ID,
		CompanyID: b.CompanyID,
		Name:      b.Name,
		Address:   b.Address,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func logCoverage(log *logger.Logger, msg, companyID string, report entity.CoverageReport) {
	level := zerolog.InfoLevel
	if len(report.Failures) > 0 {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).
		Str("company_id", companyID).
		Int("lines_created", report.Created).
		Int("failures", len(report.Failures)).
		Msg(msg)
}
