package models

import (
	"time"
)

type PickupReminderLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BatteryID    uint      `gorm:"index;not null" json:"batteryId"`
	CustomerID   uint      `gorm:"index;not null" json:"customerId"`
	Mobile       string    `gorm:"size:20" json:"mobile"`
	Message      string    `gorm:"type:text" json:"message"`
	Status       string    `gorm:"type:varchar(20)" json:"status"` // sent, failed
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	Channel      string    `gorm:"type:varchar(20)" json:"channel"` // whatsapp, sms
	SentAt       time.Time `gorm:"index" json:"sentAt"`
}
