package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"battery-erp-backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DeliveryTypeDelivered = "delivered"
	DeliveryTypeReturned  = "returned"
)

type LifecycleService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLifecycleService(db *gorm.DB, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{db: db, logger: logger}
}

// transitionOperation names the operation that moves a battery from one
// status to another. The second result is false when no edge exists.
func transitionOperation(from, to models.Status) (Operation, bool) {
	switch from {
	case models.StatusReceived, models.StatusPending:
		switch to {
		case models.StatusPending, models.StatusReady, models.StatusNotRepairable:
			return OpUpdateRepairStatus, true
		}
	case models.StatusReady:
		switch to {
		case models.StatusDelivered, models.StatusReturned:
			return OpDeliverBattery, true
		case models.StatusPending:
			return OpReopenWarranty, true
		}
	case models.StatusDelivered, models.StatusReturned:
		if to == models.StatusPending {
			return OpReopenWarranty, true
		}
	}
	return "", false
}

// CanTransition reports whether an edge from -> to exists, regardless of role.
func CanTransition(from, to models.Status) bool {
	_, ok := transitionOperation(from, to)
	return ok
}

// ApplyTransition moves a battery to target and appends one history entry in
// the same transaction. price is only accepted on repair updates. For a
// warranty reopen, comment is the mandatory reason.
func (s *LifecycleService) ApplyTransition(ctx context.Context, batteryID uint, target models.Status, actor models.Actor, comment string, price *float64) (*models.Battery, error) {
	if !target.Valid() {
		return nil, validationError("unknown status %q", target)
	}
	if price != nil && *price < 0 {
		return nil, validationError("service price must not be negative")
	}

	var battery models.Battery
	var from models.Status

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&battery, batteryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("battery")
			}
			return fmt.Errorf("failed to load battery: %w", err)
		}
		from = battery.Status

		op, ok := transitionOperation(from, target)
		if !ok {
			return newError(KindInvalidTransition, "battery %s cannot move from %s to %s", battery.TrackingID, from, target)
		}
		if err := Authorize(actor, op); err != nil {
			return err
		}
		if price != nil && op != OpUpdateRepairStatus {
			return validationError("service price can only be set while repairing")
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{"status": target, "updated_at": now}
		if price != nil {
			updates["service_price"] = *price
		}

		entry := models.StatusHistory{
			BatteryID: battery.ID,
			Status:    target,
			Comments:  strings.TrimSpace(comment),
			UpdatedBy: actor.ID,
			UpdatedAt: now,
		}

		var warrantyNote *models.StaffNote
		if op == OpReopenWarranty {
			reason := strings.TrimSpace(comment)
			if reason == "" {
				return validationError("warranty reason is required")
			}
			entry.Comments = fmt.Sprintf("Reopened for warranty - Previous status: %s. Reason: %s", from, reason)
			warrantyNote = &models.StaffNote{
				BatteryID: battery.ID,
				Note:      "WARRANTY RETURN: " + reason,
				NoteType:  models.NoteIssue,
				CreatedBy: actor.ID,
				CreatedAt: now,
			}
		}

		if err := tx.Model(&battery).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update battery status: %w", err)
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}
		if warrantyNote != nil {
			if err := tx.Create(warrantyNote).Error; err != nil {
				return fmt.Errorf("failed to add warranty note: %w", err)
			}
		}

		battery.Status = target
		if price != nil {
			battery.ServicePrice = *price
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("battery status changed",
		zap.String("tracking_id", battery.TrackingID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("by", actor.Username))

	return &battery, nil
}

// MarkDelivered hands a Ready battery back to the customer.
// deliveryType is "delivered" (default) or "returned".
func (s *LifecycleService) MarkDelivered(ctx context.Context, batteryID uint, actor models.Actor, deliveryType, comment string) (*models.Battery, error) {
	target := models.StatusDelivered
	switch strings.ToLower(strings.TrimSpace(deliveryType)) {
	case "", DeliveryTypeDelivered:
	case DeliveryTypeReturned:
		target = models.StatusReturned
	default:
		return nil, validationError("unknown delivery type %q", deliveryType)
	}
	return s.ApplyTransition(ctx, batteryID, target, actor, comment, nil)
}

func (s *LifecycleService) ReopenForWarranty(ctx context.Context, batteryID uint, actor models.Actor, reason string) (*models.Battery, error) {
	return s.ApplyTransition(ctx, batteryID, models.StatusPending, actor, reason, nil)
}
