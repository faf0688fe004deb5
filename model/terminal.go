package model

import "time"

// Terminal is a POS client known to the cloud. TOTPSecret is set once the
// owner provisions a virtual override token for it.
type Terminal struct {
	ID              uint       `gorm:"primarykey;autoIncrement"                                json:"id"`
	CompanyID       uint       `gorm:"not null;uniqueIndex:idx_terminal_company_terminal"      json:"companyId"`
	TerminalID      string     `gorm:"size:128;not null;uniqueIndex:idx_terminal_company_terminal" json:"terminalId"`
	UID             string     `gorm:"size:128"                                                json:"uid,omitempty"`
	TOTPSecret      string     `gorm:"size:128"                                                json:"-"`
	ProvisionedByID *uint      `                                                               json:"provisionedById,omitempty"`
	ProvisionedAt   *time.Time `                                                               json:"provisionedAt,omitempty"`
	CreatedAt       time.Time  `                                                               json:"createdAt"`
	UpdatedAt       time.Time  `                                                               json:"updatedAt"`
}
