package models

import (
	"time"

	"battery-erp-backend/utils"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleShopStaff  Role = "shop_staff"
	RoleTechnician Role = "technician"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleShopStaff, RoleTechnician:
		return true
	}
	return false
}

const (
	MaxUsernameLength = 64
	MaxFullNameLength = 100
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Password string `gorm:"size:256;not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null" json:"role"`
	FullName string `gorm:"size:100;not null" json:"fullName"`
	Active   bool   `gorm:"not null" json:"active"`

	// Set for accounts recreated by a restore; cleared by a password change.
	PasswordResetRequired bool `gorm:"default:false" json:"passwordResetRequired"`

	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Hash the plain-text password before the row is written.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

// Actor is the authenticated user invoking an operation.
type Actor struct {
	ID       uint
	Username string
	Role     Role
	Active   bool
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Username: u.Username, Role: u.Role, Active: u.Active}
}
