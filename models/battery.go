package models

import (
	"time"
)

type Status string

const (
	StatusReceived      Status = "Received"
	StatusPending       Status = "Pending"
	StatusReady         Status = "Ready"
	StatusDelivered     Status = "Delivered"
	StatusReturned      Status = "Returned"
	StatusNotRepairable Status = "Not Repairable"
)

var AllStatuses = []Status{
	StatusReceived,
	StatusPending,
	StatusReady,
	StatusDelivered,
	StatusReturned,
	StatusNotRepairable,
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

const (
	MaxBatteryTypeLength = 100
	MaxVoltageLength     = 10
	MaxCapacityLength    = 10
)

type Battery struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TrackingID string    `gorm:"size:20;uniqueIndex;not null" json:"trackingId"`
	CustomerID *uint     `gorm:"index" json:"customerId"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	BatteryType string `gorm:"size:100;not null" json:"batteryType"`
	Voltage     string `gorm:"size:10;not null" json:"voltage"`
	Capacity    string `gorm:"size:10;not null" json:"capacity"`

	Status     Status    `gorm:"type:varchar(20);not null;default:'Received';index" json:"status"`
	InwardDate time.Time `gorm:"index" json:"inwardDate"`

	ServicePrice float64 `gorm:"default:0" json:"servicePrice"`
	IsPickup     bool    `gorm:"default:false" json:"isPickup"`
	PickupCharge float64 `gorm:"default:0" json:"pickupCharge"`

	StatusHistory []StatusHistory `gorm:"foreignKey:BatteryID;constraint:OnDelete:CASCADE" json:"statusHistory,omitempty"`
	StaffNotes    []StaffNote     `gorm:"foreignKey:BatteryID;constraint:OnDelete:CASCADE" json:"staffNotes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusHistory is append-only: rows are inserted on every status change and never updated.
type StatusHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BatteryID     uint      `gorm:"index;not null" json:"batteryId"`
	Status        Status    `gorm:"type:varchar(20);not null" json:"status"`
	Comments      string    `gorm:"type:text" json:"comments"`
	UpdatedBy     uint      `gorm:"index;not null" json:"updatedBy"`
	UpdatedByUser *User     `gorm:"foreignKey:UpdatedBy" json:"updatedByUser,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (StatusHistory) TableName() string {
	return "battery_status_history"
}
