package model

import "time"

const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// User is an owner-app account; terminals never log in as users.
type User struct {
	ID        uint     `gorm:"primarykey;autoIncrement"`
	CompanyID uint     `gorm:"not null;index"`
	Company   *Company `gorm:"foreignKey:CompanyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Username  string   `gorm:"uniqueIndex;size:32;not null"`
	Email     string   `gorm:"size:256;index"`
	Password  string   `gorm:"size:64;not null"`
	Role      string   `gorm:"size:16;not null;default:cashier"`
	Disabled  bool     `gorm:"default:false;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) CanApproveOverrides() bool {
	return !u.Disabled && (u.Role == RoleOwner || u.Role == RoleAdmin)
}
