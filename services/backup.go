package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"battery-erp-backend/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// ConfirmationToken must be typed verbatim to run a restore.
	ConfirmationToken = "CONFIRM"
	// PlaceholderPassword is given to every restored account.
	PlaceholderPassword = "password123"
)

type RestoreCounts struct {
	Users         int `json:"users"`
	Customers     int `json:"customers"`
	Batteries     int `json:"batteries"`
	StatusHistory int `json:"statusHistory"`
	StaffNotes    int `json:"staffNotes"`
	Settings      int `json:"settings"`
}

type RestoreResult struct {
	Imported RestoreCounts `json:"imported"`
	Skipped  RestoreCounts `json:"skipped"`

	// Batteries whose customer was missing from the backup; they are kept without one.
	DegradedBatteries int  `json:"degradedBatteries"`
	Degraded          bool `json:"degraded"`

	PasswordResetUsers  []string `json:"passwordResetUsers"`
	PlaceholderPassword string   `json:"placeholderPassword"`
	Notice              string   `json:"notice"`
}

type BackupService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBackupService(db *gorm.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export reads the whole dataset into a snapshot.
func (s *BackupService) Export(ctx context.Context, actor models.Actor) (*Snapshot, error) {
	if err := Authorize(actor, OpExportBackup); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Timestamp:     stamp(time.Now().UTC()),
		Users:         []SnapshotUser{},
		Customers:     []SnapshotCustomer{},
		Batteries:     []SnapshotBattery{},
		StatusHistory: []SnapshotHistory{},
		StaffNotes:    []SnapshotNote{},
		Settings:      []SnapshotSetting{},
	}

	// One read transaction so the snapshot is consistent.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Order("id ASC").Find(&users).Error; err != nil {
			return fmt.Errorf("failed to read users: %w", err)
		}
		for i := range users {
			u := users[i]
			snap.Users = append(snap.Users, SnapshotUser{
				ID:        u.ID,
				Username:  u.Username,
				FullName:  u.FullName,
				Role:      u.Role,
				IsActive:  &users[i].Active,
				CreatedAt: stamp(u.CreatedAt),
			})
		}

		var customers []models.Customer
		if err := tx.Order("id ASC").Find(&customers).Error; err != nil {
			return fmt.Errorf("failed to read customers: %w", err)
		}
		for _, c := range customers {
			snap.Customers = append(snap.Customers, SnapshotCustomer{
				ID:              c.ID,
				Name:            c.Name,
				Mobile:          c.Mobile,
				MobileSecondary: c.MobileSecondary,
				CreatedAt:       stamp(c.CreatedAt),
			})
		}

		var batteries []models.Battery
		if err := tx.Order("id ASC").Find(&batteries).Error; err != nil {
			return fmt.Errorf("failed to read batteries: %w", err)
		}
		for _, b := range batteries {
			snap.Batteries = append(snap.Batteries, SnapshotBattery{
				ID:           b.ID,
				TrackingID:   b.TrackingID,
				CustomerID:   b.CustomerID,
				BatteryType:  b.BatteryType,
				Voltage:      b.Voltage,
				Capacity:     b.Capacity,
				Status:       b.Status,
				InwardDate:   stamp(b.InwardDate),
				ServicePrice: b.ServicePrice,
				IsPickup:     b.IsPickup,
				PickupCharge: b.PickupCharge,
			})
		}

		var history []models.StatusHistory
		if err := tx.Order("id ASC").Find(&history).Error; err != nil {
			return fmt.Errorf("failed to read status history: %w", err)
		}
		for _, h := range history {
			snap.StatusHistory = append(snap.StatusHistory, SnapshotHistory{
				ID:        h.ID,
				BatteryID: h.BatteryID,
				Status:    h.Status,
				Comments:  h.Comments,
				UpdatedBy: h.UpdatedBy,
				UpdatedAt: stamp(h.UpdatedAt),
			})
		}

		var notes []models.StaffNote
		if err := tx.Order("id ASC").Find(&notes).Error; err != nil {
			return fmt.Errorf("failed to read staff notes: %w", err)
		}
		for _, n := range notes {
			snap.StaffNotes = append(snap.StaffNotes, SnapshotNote{
				ID:         n.ID,
				BatteryID:  n.BatteryID,
				Note:       n.Note,
				NoteType:   n.NoteType,
				CreatedBy:  n.CreatedBy,
				CreatedAt:  stamp(n.CreatedAt),
				IsResolved: n.IsResolved,
			})
		}

		var settings []models.SystemSetting
		if err := tx.Order("id ASC").Find(&settings).Error; err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}
		for _, st := range settings {
			snap.Settings = append(snap.Settings, SnapshotSetting{
				Key:       st.Key,
				Value:     st.Value,
				UpdatedAt: stamp(st.UpdatedAt),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup exported",
		zap.String("by", actor.Username),
		zap.Int("customers", len(snap.Customers)),
		zap.Int("batteries", len(snap.Batteries)))

	return snap, nil
}

// ExportJSON is Export encoded as an indented JSON document.
func (s *BackupService) ExportJSON(ctx context.Context, actor models.Actor) ([]byte, error) {
	snap, err := s.Export(ctx, actor)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return data, nil
}

// Restore replaces the whole dataset with the snapshot in payload. The
// invoking admin's account survives untouched; everything else is deleted and
// re-created in a single transaction.
func (s *BackupService) Restore(ctx context.Context, payload []byte, token string, actor models.Actor) (*RestoreResult, error) {
	if err := Authorize(actor, OpRestoreBackup); err != nil {
		return nil, err
	}
	if token != ConfirmationToken {
		return nil, newError(KindConfirmationMismatch, "type %q to proceed with restore", ConfirmationToken)
	}

	snap, err := DecodeSnapshot(payload)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{
		PasswordResetUsers:  []string{},
		PlaceholderPassword: PlaceholderPassword,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoker models.User
		if err := tx.First(&invoker, actor.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("invoking user")
			}
			return fmt.Errorf("failed to load invoking user: %w", err)
		}

		if err := clearDataset(tx, invoker.ID); err != nil {
			return err
		}

		now := time.Now().UTC()

		customerIDs := make(map[uint]uint, len(snap.Customers))
		for _, c := range snap.Customers {
			customer := models.Customer{
				Name:            c.Name,
				Mobile:          c.Mobile,
				MobileSecondary: c.MobileSecondary,
				CreatedAt:       c.CreatedAt.orNow(now),
			}
			if err := tx.Create(&customer).Error; err != nil {
				return fmt.Errorf("failed to restore customer %d: %w", c.ID, err)
			}
			customerIDs[c.ID] = customer.ID
			result.Imported.Customers++
		}

		batteryIDs := make(map[uint]uint, len(snap.Batteries))
		for _, b := range snap.Batteries {
			battery := models.Battery{
				TrackingID:   b.TrackingID,
				BatteryType:  b.BatteryType,
				Voltage:      b.Voltage,
				Capacity:     b.Capacity,
				Status:       b.Status,
				InwardDate:   b.InwardDate.orNow(now),
				ServicePrice: b.ServicePrice,
				IsPickup:     b.IsPickup,
				PickupCharge: b.PickupCharge,
			}
			if b.CustomerID != nil {
				if newID, ok := customerIDs[*b.CustomerID]; ok {
					battery.CustomerID = &newID
				}
			}
			if battery.CustomerID == nil {
				result.DegradedBatteries++
			}
			if err := tx.Create(&battery).Error; err != nil {
				return fmt.Errorf("failed to restore battery %s: %w", b.TrackingID, err)
			}
			batteryIDs[b.ID] = battery.ID
			result.Imported.Batteries++
		}

		for _, u := range snap.Users {
			if u.Username == invoker.Username {
				result.Skipped.Users++
				continue
			}
			user := models.User{
				Username:              u.Username,
				Password:              PlaceholderPassword,
				Role:                  u.Role,
				FullName:              u.FullName,
				Active:                u.IsActive == nil || *u.IsActive,
				PasswordResetRequired: true,
				CreatedAt:             u.CreatedAt.orNow(now),
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to restore user %s: %w", u.Username, err)
			}
			result.Imported.Users++
			result.PasswordResetUsers = append(result.PasswordResetUsers, u.Username)
		}

		for _, h := range snap.StatusHistory {
			batteryID, ok := batteryIDs[h.BatteryID]
			if !ok {
				result.Skipped.StatusHistory++
				continue
			}
			entry := models.StatusHistory{
				BatteryID: batteryID,
				Status:    h.Status,
				Comments:  h.Comments,
				UpdatedBy: invoker.ID,
				UpdatedAt: h.UpdatedAt.orNow(now),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to restore status history %d: %w", h.ID, err)
			}
			result.Imported.StatusHistory++
		}

		for _, n := range snap.StaffNotes {
			batteryID, ok := batteryIDs[n.BatteryID]
			if !ok {
				result.Skipped.StaffNotes++
				continue
			}
			noteType := n.NoteType
			if noteType == "" {
				noteType = models.NoteFollowUp
			}
			note := models.StaffNote{
				BatteryID:  batteryID,
				Note:       n.Note,
				NoteType:   noteType,
				CreatedBy:  invoker.ID,
				CreatedAt:  n.CreatedAt.orNow(now),
				IsResolved: n.IsResolved,
			}
			if err := tx.Create(&note).Error; err != nil {
				return fmt.Errorf("failed to restore staff note %d: %w", n.ID, err)
			}
			result.Imported.StaffNotes++
		}

		for _, st := range snap.Settings {
			setting := models.SystemSetting{
				Key:       st.Key,
				Value:     st.Value,
				UpdatedAt: st.UpdatedAt.orNow(now),
			}
			if err := tx.Create(&setting).Error; err != nil {
				return fmt.Errorf("failed to restore setting %s: %w", st.Key, err)
			}
			result.Imported.Settings++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("restore failed, nothing was changed",
			zap.String("by", actor.Username),
			zap.Error(err))
		return nil, err
	}

	result.Degraded = result.DegradedBatteries > 0 ||
		result.Skipped.StatusHistory > 0 ||
		result.Skipped.StaffNotes > 0
	if len(result.PasswordResetUsers) > 0 {
		result.Notice = fmt.Sprintf("Restored user passwords have been reset to %q. Every restored user must change it at next login.", PlaceholderPassword)
	}

	s.logger.Warn("dataset restored from backup",
		zap.String("by", actor.Username),
		zap.Int("customers", result.Imported.Customers),
		zap.Int("batteries", result.Imported.Batteries),
		zap.Int("degraded_batteries", result.DegradedBatteries),
		zap.Int("users_reset", len(result.PasswordResetUsers)))

	return result, nil
}

// clearDataset deletes children before parents. Reminder logs go too since
// they point at batteries that are about to be renumbered.
func clearDataset(tx *gorm.DB, keepUserID uint) error {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{
		&models.StaffNote{},
		&models.StatusHistory{},
		&models.PickupReminderLog{},
		&models.Battery{},
		&models.Customer{},
		&models.SystemSetting{},
	} {
		if err := all.Delete(m).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", m, err)
		}
	}
	if err := tx.Where("id <> ?", keepUserID).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}
