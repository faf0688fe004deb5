package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is append-only; rows only disappear with a tenant purge.
// Result is one of requested, approved, rejected, provisioned or SUCCESS.
type AuditLog struct {
	ID            uint64            `gorm:"primaryKey;autoIncrement"                       json:"id"`
	CompanyID     uint              `gorm:"not null;index:idx_audit_company_created"       json:"companyId"`
	ActionCode    string            `gorm:"size:64;not null"                               json:"actionCode"`
	ResourceType  string            `gorm:"size:64"                                        json:"resourceType,omitempty"`
	ResourceID    string            `gorm:"size:128"                                       json:"resourceId,omitempty"`
	RequestedByID *uint             `                                                      json:"requestedById"`
	ApprovedByID  *uint             `                                                      json:"approvedById"`
	Method        string            `gorm:"size:16"                                        json:"method"`
	Result        string            `gorm:"size:32;not null"                               json:"result"`
	TerminalID    string            `gorm:"size:128"                                       json:"terminalId,omitempty"`
	Meta          datatypes.JSONMap `                                                      json:"meta,omitempty"`
	CreatedAt     time.Time         `gorm:"autoCreateTime;index:idx_audit_company_created" json:"createdAt"`
}
