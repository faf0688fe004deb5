package audit

import (
	"context"
	"time"

	"github.com/fullpos/poscloud/model"
	"github.com/fullpos/poscloud/params"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ResultRequested   = "requested"
	ResultApproved    = "approved"
	ResultRejected    = "rejected"
	ResultProvisioned = "provisioned"
	ResultSuccess     = "SUCCESS"
)

const (
	MethodRemote  = model.OverrideMethodRemote
	MethodVirtual = model.OverrideMethodVirtual
	MethodAPI     = "API"
)

const (
	ActionVirtualTokenProvision = "VIRTUAL_TOKEN_PROVISION"
	ActionDangerReset           = "DANGER_RESET"
	ActionDangerDelete          = "DANGER_DELETE"
)

type OverrideRecord struct {
	CompanyID     uint
	ActionCode    string
	ResourceType  string
	ResourceID    string
	RequestedByID *uint
	ApprovedByID  *uint
	Method        string
	Result        string
	TerminalID    string
	Meta          map[string]interface{}
}

type PurgeRecord struct {
	CompanyID uint
	UserID    *uint
	Delete    bool
	Tables    []string
}

type AuditService struct {
	repo AuditLogRepository
	now  func() time.Time
}

// WithTx returns a copy whose writes join tx.
func (s *AuditService) WithTx(tx *gorm.DB) *AuditService {
	return &AuditService{repo: s.repo.WithTx(tx), now: s.now}
}

func (s *AuditService) RecordOverride(ctx context.Context, record OverrideRecord) error {
	entry := model.AuditLog{
		CompanyID:     record.CompanyID,
		ActionCode:    record.ActionCode,
		ResourceType:  record.ResourceType,
		ResourceID:    record.ResourceID,
		RequestedByID: record.RequestedByID,
		ApprovedByID:  record.ApprovedByID,
		Method:        record.Method,
		Result:        record.Result,
		TerminalID:    record.TerminalID,
		CreatedAt:     s.now(),
	}
	if len(record.Meta) > 0 {
		entry.Meta = datatypes.JSONMap(record.Meta)
	}
	return s.repo.Create(ctx, &entry)
}

// RecordPurge leaves a trace of a destructive tenant operation. It is written
// after the purge so the entry survives a reset.
func (s *AuditService) RecordPurge(ctx context.Context, record PurgeRecord) error {
	action := ActionDangerReset
	if record.Delete {
		action = ActionDangerDelete
	}
	return s.RecordOverride(ctx, OverrideRecord{
		CompanyID:     record.CompanyID,
		ActionCode:    action,
		ResourceType:  "company",
		RequestedByID: record.UserID,
		ApprovedByID:  record.UserID,
		Method:        MethodAPI,
		Result:        ResultSuccess,
		Meta:          map[string]interface{}{"tables": record.Tables},
	})
}

// List returns the newest entries of a company first.
func (s *AuditService) List(ctx context.Context, companyID uint, limit int) ([]*model.AuditLog, error) {
	return s.repo.Find(ctx, companyID, ClampLimit(limit, params.AuditDefaultLimit))
}

// ClampLimit maps a non-positive limit to def and caps it at ListMaxLimit.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > params.ListMaxLimit {
		return params.ListMaxLimit
	}
	return limit
}

type Option func(*AuditService)

func WithClock(now func() time.Time) Option {
	return func(s *AuditService) {
		s.now = now
	}
}

func NewAuditService(repo AuditLogRepository, opts ...Option) *AuditService {
	s := &AuditService{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
