package models

import (
	"time"
)

type NoteType string

const (
	NoteFollowUp NoteType = "followup"
	NoteReminder NoteType = "reminder"
	NoteIssue    NoteType = "issue"
	NoteResolved NoteType = "resolved"
)

func (t NoteType) Valid() bool {
	switch t {
	case NoteFollowUp, NoteReminder, NoteIssue, NoteResolved:
		return true
	}
	return false
}

type StaffNote struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BatteryID     uint      `gorm:"index;not null" json:"batteryId"`
	Note          string    `gorm:"type:text;not null" json:"note"`
	NoteType      NoteType  `gorm:"size:50;not null" json:"noteType"`
	CreatedBy     uint      `gorm:"index;not null" json:"createdBy"`
	CreatedByUser *User     `gorm:"foreignKey:CreatedBy" json:"createdByUser,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	IsResolved    bool      `gorm:"not null" json:"isResolved"`
}

func (StaffNote) TableName() string {
	return "battery_staff_notes"
}
