package models

import (
	"time"
)

const (
	SettingShopName   = "shop_name"
	SettingIDPrefix   = "battery_id_prefix"
	SettingIDStart    = "battery_id_start"
	SettingIDPadding  = "battery_id_padding"
	SettingIDSequence = "battery_id_sequence"
)

const (
	DefaultShopName  = "Battery Repair Service"
	DefaultIDPrefix  = "BAT"
	DefaultIDStart   = 1
	DefaultIDPadding = 4

	MaxTrackingIDLength = 20
	MaxSettingKeyLength = 50
)

type SystemSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:50;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"column:setting_value;type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
