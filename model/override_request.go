package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OverrideStatusPending  = "PENDING"
	OverrideStatusApproved = "APPROVED"
	OverrideStatusRejected = "REJECTED"
	OverrideStatusExpired  = "EXPIRED"
)

// OverrideRequest records a terminal asking a supervisor to authorize an action.
// It leaves PENDING at most once.
type OverrideRequest struct {
	ID            uint              `gorm:"primarykey;autoIncrement"                          json:"id"`
	CompanyID     uint              `gorm:"not null;index:idx_override_request_company"       json:"companyId"`
	ActionCode    string            `gorm:"size:64;not null"                                  json:"actionCode"`
	ResourceType  string            `gorm:"size:64"                                           json:"resourceType,omitempty"`
	ResourceID    string            `gorm:"size:128"                                          json:"resourceId,omitempty"`
	RequestedByID uint              `gorm:"not null"                                          json:"requestedById"`
	ApprovedByID  *uint             `                                                         json:"approvedById"`
	TerminalID    string            `gorm:"size:128"                                          json:"terminalId,omitempty"`
	Meta          datatypes.JSONMap `                                                         json:"meta,omitempty"`
	Status        string            `gorm:"size:16;not null;default:PENDING;index:idx_override_request_company" json:"status"`
	TokenHash     string            `gorm:"size:64"                                           json:"-"`
	ExpiresAt     *time.Time        `                                                         json:"expiresAt"`
	ResolvedAt    *time.Time        `                                                         json:"resolvedAt"`
	CreatedAt     time.Time         `gorm:"index"                                             json:"createdAt"`
}

func (r *OverrideRequest) IsPending() bool {
	return r.Status == OverrideStatusPending
}
