package audit

import (
	"context"

	"github.com/fullpos/poscloud/model"
	"gorm.io/gorm"
)

type AuditLogRepository interface {
	WithTx(tx *gorm.DB) AuditLogRepository
	Create(ctx context.Context, entry *model.AuditLog) error
	Find(ctx context.Context, companyID uint, limit int) ([]*model.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func (r *auditLogRepository) WithTx(tx *gorm.DB) AuditLogRepository {
	return NewAuditLogRepository(tx)
}

func (r *auditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepository) Find(ctx context.Context, companyID uint, limit int) ([]*model.AuditLog, error) {
	var entries []*model.AuditLog
	err := r.db.WithContext(ctx).
		Where(model.ColCompanyID+" = ?", companyID).
		Order(model.ColCreatedAt + " DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db}
}
