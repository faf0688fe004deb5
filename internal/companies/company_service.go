package companies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fullpos/poscloud/internal/audit"
	"github.com/fullpos/poscloud/model"
	"gorm.io/gorm"
)

// NormalizeRNC keeps only lowercase letters and digits, so "1-01-00001-1" and
// "101000011" address the same company.
func NormalizeRNC(rnc string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(rnc) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

type CompanyService struct {
	db          *gorm.DB
	companyRepo CompanyRepository
	auditSvc    *audit.AuditService
}

func (s *CompanyService) Create(ctx context.Context, name string, rnc string, ownerEmail string) (*model.Company, error) {
	normalized := NormalizeRNC(rnc)
	if normalized == "" {
		return nil, ErrInvalidRNC
	}
	company := model.Company{
		Name:       strings.TrimSpace(name),
		RNC:        normalized,
		OwnerEmail: strings.TrimSpace(ownerEmail),
	}
	if err := s.companyRepo.Create(ctx, &company); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCompanyExists
		}
		return nil, err
	}
	return &company, nil
}

func (s *CompanyService) GetCompany(ctx context.Context, companyID uint) (*model.Company, error) {
	company, err := s.companyRepo.First(ctx, "id = ?", companyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	return company, err
}

// Resolve maps what a terminal knows about its tenant to the company row. The
// tax id wins when both are given.
func (s *CompanyService) Resolve(ctx context.Context, rnc string, cloudID string) (*model.Company, error) {
	var (
		company *model.Company
		err     error
	)
	switch {
	case NormalizeRNC(rnc) != "":
		company, err = s.companyRepo.First(ctx, "rnc = ?", NormalizeRNC(rnc))
	case strings.TrimSpace(cloudID) != "":
		company, err = s.companyRepo.First(ctx, "cloud_id = ?", strings.TrimSpace(cloudID))
	default:
		return nil, ErrCompanyNotFound
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	return company, err
}

type purgeTarget struct {
	table string
	model interface{}
}

var purgeTargets = []purgeTarget{
	{"override_token", &model.OverrideToken{}},
	{"override_request", &model.OverrideRequest{}},
	{"terminal", &model.Terminal{}},
	{"audit_log", &model.AuditLog{}},
}

// Purge wipes the override data of a company in one transaction. With
// deleteCompany the users and the company row go too. Either way a single
// DANGER_* entry is written after the wipe.
func (s *CompanyService) Purge(ctx context.Context, companyID uint, userID *uint, deleteCompany bool) error {
	if _, err := s.GetCompany(ctx, companyID); err != nil {
		return err
	}

	targets := purgeTargets
	if deleteCompany {
		targets = append(targets[:len(targets):len(targets)], purgeTarget{"user", &model.User{}})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.companyRepo.WithTx(tx)
		var tables []string
		for _, target := range targets {
			affected, err := repo.DeleteScoped(ctx, companyID, target.model)
			if err != nil {
				return fmt.Errorf("purge %s: %w", target.table, err)
			}
			slog.Info("Purged company rows", "companyId", companyID, "table", target.table, "rows", affected)
			tables = append(tables, target.table)
		}
		if deleteCompany {
			if err := repo.Delete(ctx, companyID); err != nil {
				return err
			}
		}
		return s.auditSvc.WithTx(tx).RecordPurge(ctx, audit.PurgeRecord{
			CompanyID: companyID,
			UserID:    userID,
			Delete:    deleteCompany,
			Tables:    tables,
		})
	})
}

func NewCompanyService(db *gorm.DB, auditSvc *audit.AuditService) *CompanyService {
	return &CompanyService{
		db:          db,
		companyRepo: NewCompanyRepository(db),
		auditSvc:    auditSvc,
	}
}
