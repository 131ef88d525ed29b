package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"battery-erp-backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShopSettings struct {
	ShopName string   `json:"shopName"`
	IDScheme IDConfig `json:"idScheme"`
}

type UpdateSettingsInput struct {
	ShopName  string `json:"shopName" binding:"required"`
	IDPrefix  string `json:"batteryIdPrefix"`
	IDStart   int    `json:"batteryIdStart"`
	IDPadding int    `json:"batteryIdPadding"`
}

type SettingsService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSettingsService(db *gorm.DB, logger *zap.Logger) *SettingsService {
	return &SettingsService{db: db, logger: logger}
}

func lookupSetting(tx *gorm.DB, key string) (string, bool, error) {
	var s models.SystemSetting
	err := tx.Where("setting_key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return s.Value, true, nil
}

func settingOrDefault(tx *gorm.DB, key, def string) (string, error) {
	v, found, err := lookupSetting(tx, key)
	if err != nil || !found {
		return def, err
	}
	return v, nil
}

func storeSetting(tx *gorm.DB, key, value string) error {
	s := models.SystemSetting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// loadIDConfig reads the identifier scheme once; unusable values fall back to defaults.
func loadIDConfig(tx *gorm.DB) (IDConfig, error) {
	cfg := DefaultIDConfig()

	prefix, found, err := lookupSetting(tx, models.SettingIDPrefix)
	if err != nil {
		return cfg, err
	}
	if found {
		cfg.Prefix = prefix
	}

	if raw, found, err := lookupSetting(tx, models.SettingIDStart); err != nil {
		return cfg, err
	} else if n, convErr := strconv.Atoi(raw); found && convErr == nil && n >= 0 {
		cfg.Start = n
	}

	if raw, found, err := lookupSetting(tx, models.SettingIDPadding); err != nil {
		return cfg, err
	} else if n, convErr := strconv.Atoi(raw); found && convErr == nil && n > 0 {
		cfg.Padding = n
	}

	if cfg.Validate() != nil {
		return DefaultIDConfig(), nil
	}
	return cfg, nil
}

func (s *SettingsService) Get(ctx context.Context) (*ShopSettings, error) {
	db := s.db.WithContext(ctx)

	name, err := settingOrDefault(db, models.SettingShopName, models.DefaultShopName)
	if err != nil {
		return nil, err
	}
	cfg, err := loadIDConfig(db)
	if err != nil {
		return nil, err
	}
	return &ShopSettings{ShopName: name, IDScheme: cfg}, nil
}

func (s *SettingsService) ShopName(ctx context.Context) (string, error) {
	return settingOrDefault(s.db.WithContext(ctx), models.SettingShopName, models.DefaultShopName)
}

func (s *SettingsService) Update(ctx context.Context, actor models.Actor, input UpdateSettingsInput) (*ShopSettings, error) {
	if err := Authorize(actor, OpManageSettings); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.ShopName)
	if name == "" {
		return nil, validationError("shop name is required")
	}
	cfg := IDConfig{Prefix: input.IDPrefix, Start: input.IDStart, Padding: input.IDPadding}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadIDConfig(tx)
		if err != nil {
			return err
		}
		// A new scheme restarts numbering from the last battery that matches it.
		if current.Prefix != cfg.Prefix || current.Start != cfg.Start {
			if err := tx.Where("setting_key = ?", models.SettingIDSequence).Delete(&models.SystemSetting{}).Error; err != nil {
				return fmt.Errorf("failed to reset identifier sequence: %w", err)
			}
		}

		values := map[string]string{
			models.SettingShopName:  name,
			models.SettingIDPrefix:  cfg.Prefix,
			models.SettingIDStart:   strconv.Itoa(cfg.Start),
			models.SettingIDPadding: strconv.Itoa(cfg.Padding),
		}
		for key, value := range values {
			if err := storeSetting(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("settings updated",
		zap.String("by", actor.Username),
		zap.String("prefix", cfg.Prefix),
		zap.Int("start", cfg.Start),
		zap.Int("padding", cfg.Padding))

	return &ShopSettings{ShopName: name, IDScheme: cfg}, nil
}

// SeedDefaults inserts the default settings that are missing.
func (s *SettingsService) SeedDefaults(ctx context.Context) error {
	defaults := []models.SystemSetting{
		{Key: models.SettingShopName, Value: models.DefaultShopName},
		{Key: models.SettingIDPrefix, Value: models.DefaultIDPrefix},
		{Key: models.SettingIDStart, Value: strconv.Itoa(models.DefaultIDStart)},
		{Key: models.SettingIDPadding, Value: strconv.Itoa(models.DefaultIDPadding)},
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
}
