package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"battery-erp-backend/models"
	"battery-erp-backend/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const PageSize = 20

type RegisterBatteryInput struct {
	CustomerName    string  `json:"customerName" binding:"required"`
	Mobile          string  `json:"mobile" binding:"required"`
	MobileSecondary string  `json:"mobileSecondary"`
	BatteryType     string  `json:"batteryType" binding:"required"`
	Voltage         string  `json:"voltage" binding:"required"`
	Capacity        string  `json:"capacity" binding:"required"`
	IsPickup        bool    `json:"isPickup"`
	PickupCharge    float64 `json:"pickupCharge"`
}

type BatteryDetails struct {
	Battery *models.Battery    `json:"battery"`
	Notes   []models.StaffNote `json:"notes"`
}

type BatteryPage struct {
	Batteries  []models.Battery `json:"batteries"`
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"totalPages"`
	Statuses   []models.Status  `json:"statuses"`
}

// Document is a receipt or bill ready for the presentation layer to render.
type Document struct {
	Kind         string          `json:"kind"`
	ShopName     string          `json:"shopName"`
	IssuedAt     time.Time       `json:"issuedAt"`
	Battery      *models.Battery `json:"battery"`
	ServicePrice float64         `json:"servicePrice"`
	PickupCharge float64         `json:"pickupCharge"`
	Total        float64         `json:"total"`
}

type BatteryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBatteryService(db *gorm.DB, logger *zap.Logger) *BatteryService {
	return &BatteryService{db: db, logger: logger}
}

func (in *RegisterBatteryInput) normalize() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Mobile = utils.NormalizePhone(in.Mobile)
	in.MobileSecondary = utils.NormalizePhone(in.MobileSecondary)
	in.BatteryType = strings.TrimSpace(in.BatteryType)
	in.Voltage = strings.TrimSpace(in.Voltage)
	in.Capacity = strings.TrimSpace(in.Capacity)

	if in.CustomerName == "" || in.Mobile == "" || in.BatteryType == "" || in.Voltage == "" || in.Capacity == "" {
		return validationError("customer name, mobile, battery type, voltage and capacity are required")
	}
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"customer name", in.CustomerName, models.MaxCustomerNameLength},
		{"battery type", in.BatteryType, models.MaxBatteryTypeLength},
		{"voltage", in.Voltage, models.MaxVoltageLength},
		{"capacity", in.Capacity, models.MaxCapacityLength},
	} {
		if utils.TooLong(f.value, f.max) {
			return validationError("%s must be at most %d characters", f.name, f.max)
		}
	}
	if !utils.ValidatePhone(in.Mobile) {
		return validationError("invalid mobile number %q", in.Mobile)
	}
	if in.MobileSecondary != "" && !utils.ValidatePhone(in.MobileSecondary) {
		return validationError("invalid secondary mobile number %q", in.MobileSecondary)
	}
	if in.PickupCharge < 0 {
		return validationError("pickup charge must not be negative")
	}
	if !in.IsPickup {
		in.PickupCharge = 0
	}
	return nil
}

// RegisterBattery records a battery handed in at the counter. Customers are
// matched by mobile number and created on first visit.
func (s *BatteryService) RegisterBattery(ctx context.Context, actor models.Actor, input RegisterBatteryInput) (*models.Battery, error) {
	if err := Authorize(actor, OpRegisterBattery); err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}

	var battery models.Battery
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		err := tx.Where("mobile = ?", input.Mobile).Order("id ASC").First(&customer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			customer = models.Customer{Name: input.CustomerName, Mobile: input.Mobile}
			if input.MobileSecondary != "" {
				customer.MobileSecondary = &input.MobileSecondary
			}
			if err := tx.Create(&customer).Error; err != nil {
				return fmt.Errorf("failed to create customer: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up customer: %w", err)
		}

		trackingID, err := issueTrackingID(tx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		battery = models.Battery{
			TrackingID:   trackingID,
			CustomerID:   &customer.ID,
			BatteryType:  input.BatteryType,
			Voltage:      input.Voltage,
			Capacity:     input.Capacity,
			Status:       models.StatusReceived,
			InwardDate:   now,
			IsPickup:     input.IsPickup,
			PickupCharge: input.PickupCharge,
		}
		if err := tx.Create(&battery).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(KindDuplicateIdentifier, "identifier %s is already assigned", trackingID)
			}
			return fmt.Errorf("failed to create battery: %w", err)
		}

		comment := "Battery received from customer"
		if input.IsPickup {
			comment += " - Pickup service"
		}
		entry := models.StatusHistory{
			BatteryID: battery.ID,
			Status:    models.StatusReceived,
			Comments:  comment,
			UpdatedBy: actor.ID,
			UpdatedAt: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}

		battery.Customer = &customer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("battery registered",
		zap.String("tracking_id", battery.TrackingID),
		zap.Uint("customer_id", *battery.CustomerID),
		zap.Bool("pickup", battery.IsPickup),
		zap.String("by", actor.Username))

	return &battery, nil
}

func (s *BatteryService) loadBattery(tx *gorm.DB, id uint) (*models.Battery, error) {
	var battery models.Battery
	if err := tx.Preload("Customer").First(&battery, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("battery")
		}
		return nil, fmt.Errorf("failed to load battery: %w", err)
	}
	return &battery, nil
}

// Details returns the battery with its customer, full history (oldest first)
// and staff notes (newest first).
func (s *BatteryService) Details(ctx context.Context, actor models.Actor, id uint) (*BatteryDetails, error) {
	if err := Authorize(actor, OpViewBattery); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var battery models.Battery
	err := db.Preload("Customer").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("updated_at ASC, id ASC") }).
		Preload("StatusHistory.UpdatedByUser").
		First(&battery, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("battery")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load battery: %w", err)
	}

	var notes []models.StaffNote
	if err := db.Preload("CreatedByUser").
		Where("battery_id = ?", battery.ID).
		Order("created_at DESC, id DESC").
		Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}

	return &BatteryDetails{Battery: &battery, Notes: notes}, nil
}

// matching filters on a case-insensitive substring of the tracking id,
// customer name or customer mobile.
func matching(query string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		query = strings.TrimSpace(query)
		if query == "" {
			return db
		}
		like := "%" + strings.ToLower(query) + "%"
		return db.Joins("LEFT JOIN customers ON customers.id = batteries.customer_id").
			Where("(LOWER(batteries.tracking_id) LIKE ? OR LOWER(customers.mobile) LIKE ? OR LOWER(customers.name) LIKE ?)", like, like, like)
	}
}

func withStatus(statuses ...models.Status) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(statuses) == 0 {
			return db
		}
		return db.Where("batteries.status IN ?", statuses)
	}
}

func paginate(page int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * PageSize).Limit(PageSize)
	}
}

func totalPages(total int64) int {
	return int(math.Ceil(float64(total) / float64(PageSize)))
}

// RepairQueue lists work still on the bench, oldest intake first.
func (s *BatteryService) RepairQueue(ctx context.Context, actor models.Actor, query string) ([]models.Battery, error) {
	if err := Authorize(actor, OpViewRepairQueue); err != nil {
		return nil, err
	}

	var batteries []models.Battery
	err := s.db.WithContext(ctx).
		Scopes(withStatus(models.StatusReceived, models.StatusPending), matching(query)).
		Preload("Customer").
		Order("batteries.inward_date ASC, batteries.id ASC").
		Find(&batteries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load repair queue: %w", err)
	}
	return batteries, nil
}

// Search looks across every status. An empty query returns nothing.
func (s *BatteryService) Search(ctx context.Context, actor models.Actor, query string) ([]models.Battery, error) {
	if err := Authorize(actor, OpSearch); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []models.Battery{}, nil
	}

	var batteries []models.Battery
	err := s.db.WithContext(ctx).
		Scopes(matching(query)).
		Preload("Customer").
		Order("batteries.inward_date DESC, batteries.id DESC").
		Find(&batteries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search batteries: %w", err)
	}
	return batteries, nil
}

func (s *BatteryService) listByStatus(ctx context.Context, actor models.Actor, op Operation, statuses ...models.Status) ([]models.Battery, error) {
	if err := Authorize(actor, op); err != nil {
		return nil, err
	}

	var batteries []models.Battery
	err := s.db.WithContext(ctx).
		Scopes(withStatus(statuses...)).
		Preload("Customer").
		Order("batteries.inward_date DESC, batteries.id DESC").
		Find(&batteries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list batteries: %w", err)
	}
	return batteries, nil
}

func (s *BatteryService) Delivered(ctx context.Context, actor models.Actor) ([]models.Battery, error) {
	return s.listByStatus(ctx, actor, OpViewDelivered, models.StatusDelivered, models.StatusReturned)
}

func (s *BatteryService) NotRepairable(ctx context.Context, actor models.Actor) ([]models.Battery, error) {
	return s.listByStatus(ctx, actor, OpViewNotRepairable, models.StatusNotRepairable)
}

// Finished lists repaired batteries waiting for pickup.
func (s *BatteryService) Finished(ctx context.Context, actor models.Actor) ([]models.Battery, error) {
	return s.listByStatus(ctx, actor, OpViewBattery, models.StatusReady)
}

// ListAll pages through every battery, newest intake first.
func (s *BatteryService) ListAll(ctx context.Context, actor models.Actor, status models.Status, page int) (*BatteryPage, error) {
	if err := Authorize(actor, OpViewAllBatteries); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, validationError("unknown status %q", status)
	}
	if page < 1 {
		page = 1
	}

	db := s.db.WithContext(ctx)
	var filter []models.Status
	if status != "" {
		filter = append(filter, status)
	}

	var total int64
	if err := db.Model(&models.Battery{}).Scopes(withStatus(filter...)).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count batteries: %w", err)
	}

	var batteries []models.Battery
	err := db.Scopes(withStatus(filter...), paginate(page)).
		Preload("Customer").
		Order("batteries.inward_date DESC, batteries.id DESC").
		Find(&batteries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list batteries: %w", err)
	}

	var statuses []models.Status
	if err := db.Model(&models.Battery{}).Distinct("status").Order("status").Pluck("status", &statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	return &BatteryPage{
		Batteries:  batteries,
		Page:       page,
		PerPage:    PageSize,
		Total:      total,
		TotalPages: totalPages(total),
		Statuses:   statuses,
	}, nil
}

func (s *BatteryService) document(ctx context.Context, kind string, battery *models.Battery) (*Document, error) {
	shopName, err := settingOrDefault(s.db.WithContext(ctx), models.SettingShopName, models.DefaultShopName)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Kind:         kind,
		ShopName:     shopName,
		IssuedAt:     time.Now().UTC(),
		Battery:      battery,
		ServicePrice: battery.ServicePrice,
	}
	if battery.IsPickup {
		doc.PickupCharge = battery.PickupCharge
	}
	doc.Total = doc.ServicePrice + doc.PickupCharge
	return doc, nil
}

// Receipt is the intake slip; it is available in every status.
func (s *BatteryService) Receipt(ctx context.Context, actor models.Actor, id uint) (*Document, error) {
	if err := Authorize(actor, OpViewBattery); err != nil {
		return nil, err
	}
	battery, err := s.loadBattery(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return s.document(ctx, "receipt", battery)
}

// Bill is only issued for completed repairs.
func (s *BatteryService) Bill(ctx context.Context, actor models.Actor, id uint) (*Document, error) {
	if err := Authorize(actor, OpViewBattery); err != nil {
		return nil, err
	}
	battery, err := s.loadBattery(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if battery.Status != models.StatusReady {
		return nil, validationError("bill can only be generated for completed repairs")
	}
	return s.document(ctx, "bill", battery)
}

// AddNote attaches a staff note. An empty note type defaults to followup.
func (s *BatteryService) AddNote(ctx context.Context, actor models.Actor, batteryID uint, text string, noteType models.NoteType) (*models.StaffNote, error) {
	if err := Authorize(actor, OpAddNote); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("note cannot be empty")
	}
	if noteType == "" {
		noteType = models.NoteFollowUp
	}
	if !noteType.Valid() {
		return nil, validationError("unknown note type %q", noteType)
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Battery{}).Where("id = ?", batteryID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to load battery: %w", err)
	}
	if count == 0 {
		return nil, notFound("battery")
	}

	note := models.StaffNote{
		BatteryID: batteryID,
		Note:      text,
		NoteType:  noteType,
		CreatedBy: actor.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to add note: %w", err)
	}
	return &note, nil
}

func (s *BatteryService) QuickNote(ctx context.Context, actor models.Actor, batteryID uint, text string) (*models.StaffNote, error) {
	return s.AddNote(ctx, actor, batteryID, text, models.NoteFollowUp)
}

func (s *BatteryService) ResolveNote(ctx context.Context, actor models.Actor, noteID uint) (*models.StaffNote, error) {
	if err := Authorize(actor, OpResolveNote); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var note models.StaffNote
	if err := db.First(&note, noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("note")
		}
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	if note.IsResolved {
		return &note, nil
	}

	if err := db.Model(&note).Update("is_resolved", true).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve note: %w", err)
	}
	note.IsResolved = true
	return &note, nil
}
