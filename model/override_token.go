package model

import "time"

const (
	OverrideMethodRemote  = "remote"
	OverrideMethodVirtual = "virtual"
)

// OverrideToken is the credential a terminal presents. Only the SHA-256 of the
// normalized token is stored. UsedAt goes from nil to set exactly once.
type OverrideToken struct {
	ID            uint       `gorm:"primarykey;autoIncrement"                                  json:"id"`
	CompanyID     uint       `gorm:"not null;index:idx_override_token_lookup;uniqueIndex:idx_override_token_nonce" json:"companyId"`
	ActionCode    string     `gorm:"size:64;not null;index:idx_override_token_lookup"          json:"actionCode"`
	ResourceType  string     `gorm:"size:64"                                                   json:"resourceType,omitempty"`
	ResourceID    string     `gorm:"size:128"                                                  json:"resourceId,omitempty"`
	TokenHash     string     `gorm:"size:64;not null;index:idx_override_token_lookup"          json:"-"`
	Method        string     `gorm:"size:16;not null"                                          json:"method"`
	Nonce         string     `gorm:"size:32;not null;uniqueIndex:idx_override_token_nonce"     json:"-"`
	RequestedByID uint       `gorm:"not null"                                                  json:"requestedById"`
	ApprovedByID  *uint      `                                                                 json:"approvedById"`
	ExpiresAt     time.Time  `gorm:"not null"                                                  json:"expiresAt"`
	TerminalID    string     `gorm:"size:128;uniqueIndex:idx_override_token_nonce"             json:"terminalId,omitempty"`
	RequestID     *uint      `gorm:"uniqueIndex"                                               json:"requestId"`
	UsedAt        *time.Time `                                                                 json:"usedAt"`
	UsedByID      *uint      `                                                                 json:"usedById"`
	Result        string     `gorm:"size:32"                                                   json:"result,omitempty"`
	CreatedAt     time.Time  `                                                                 json:"createdAt"`
}

func (t *OverrideToken) IsUsed() bool {
	return t.UsedAt != nil
}

func (t *OverrideToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
