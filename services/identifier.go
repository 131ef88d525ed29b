package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"battery-erp-backend/models"

	"gorm.io/gorm"
)

// IDConfig is the tracking identifier scheme: prefix + zero-padded sequence number.
type IDConfig struct {
	Prefix  string `json:"prefix"`
	Start   int    `json:"start"`
	Padding int    `json:"padding"`
}

func DefaultIDConfig() IDConfig {
	return IDConfig{
		Prefix:  models.DefaultIDPrefix,
		Start:   models.DefaultIDStart,
		Padding: models.DefaultIDPadding,
	}
}

func (c IDConfig) Validate() error {
	if strings.TrimSpace(c.Prefix) != c.Prefix {
		return validationError("identifier prefix must not have surrounding spaces")
	}
	if c.Start < 0 {
		return validationError("identifier start number must not be negative")
	}
	if c.Padding < 1 || c.Padding > 10 {
		return validationError("identifier padding must be between 1 and 10")
	}
	if len(c.Prefix)+c.Padding > models.MaxTrackingIDLength {
		return validationError("identifier prefix and padding exceed %d characters", models.MaxTrackingIDLength)
	}
	return nil
}

// NextIdentifier issues Start when nothing was issued yet, otherwise last+1.
func NextIdentifier(cfg IDConfig, last *int) string {
	next := cfg.Start
	if last != nil {
		next = *last + 1
	}
	return fmt.Sprintf("%s%0*d", cfg.Prefix, cfg.Padding, next)
}

// ParseSequence extracts the numeric suffix of id after the configured prefix.
func ParseSequence(cfg IDConfig, id string) (int, bool) {
	if !strings.HasPrefix(id, cfg.Prefix) {
		return 0, false
	}
	suffix := id[len(cfg.Prefix):]
	if suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}

// lastIssuedNumber prefers the explicit sequence setting and falls back to the
// most recently created battery. A nil result means numbering (re)starts at Start.
func lastIssuedNumber(tx *gorm.DB, cfg IDConfig) (*int, error) {
	raw, found, err := lookupSetting(tx, models.SettingIDSequence)
	if err != nil {
		return nil, err
	}
	if found {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return &n, nil
		}
	}

	var last models.Battery
	err = tx.Select("id", "tracking_id").Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last battery: %w", err)
	}

	n, ok := ParseSequence(cfg, last.TrackingID)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// issueTrackingID generates the next identifier and advances the sequence
// inside tx. A collision with an existing battery is a DuplicateIdentifier.
func issueTrackingID(tx *gorm.DB) (string, error) {
	cfg, err := loadIDConfig(tx)
	if err != nil {
		return "", err
	}

	last, err := lastIssuedNumber(tx, cfg)
	if err != nil {
		return "", err
	}
	id := NextIdentifier(cfg, last)
	if len(id) > models.MaxTrackingIDLength {
		return "", validationError("identifier %s exceeds %d characters", id, models.MaxTrackingIDLength)
	}

	var existing int64
	if err := tx.Model(&models.Battery{}).Where("tracking_id = ?", id).Count(&existing).Error; err != nil {
		return "", fmt.Errorf("failed to check identifier: %w", err)
	}
	if existing > 0 {
		return "", newError(KindDuplicateIdentifier, "identifier %s is already assigned", id)
	}

	issued, _ := ParseSequence(cfg, id)
	if err := storeSetting(tx, models.SettingIDSequence, strconv.Itoa(issued)); err != nil {
		return "", err
	}
	return id, nil
}
