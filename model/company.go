package model

import (
	"time"

	"gorm.io/gorm"
)

// Company is the tenant. Terminals address it either by RNC (tax id) or by CloudID.
type Company struct {
	ID         uint      `gorm:"primarykey;autoIncrement"     json:"id"`
	Name       string    `gorm:"size:128;not null"            json:"name"`
	RNC        string    `gorm:"size:32;uniqueIndex;not null" json:"rnc"`
	CloudID    string    `gorm:"size:32;uniqueIndex;not null" json:"cloudId"`
	OwnerEmail string    `gorm:"size:256"                     json:"ownerEmail,omitempty"`
	CreatedAt  time.Time `                                    json:"createdAt"`
	UpdatedAt  time.Time `                                    json:"updatedAt"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.CloudID == "" {
		c.CloudID = GenerateCloudID()
	}
	return nil
}
