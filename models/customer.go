package models

import (
	"time"
)

// Column widths; inputs are checked against these before they reach the store.
const (
	MaxCustomerNameLength = 100
	MaxMobileLength       = 15
)

type Customer struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Name            string  `gorm:"size:100;not null" json:"name"`
	Mobile          string  `gorm:"size:15;not null;index" json:"mobile"`
	MobileSecondary *string `gorm:"size:15" json:"mobileSecondary,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	Batteries []Battery `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"batteries,omitempty"`
}
