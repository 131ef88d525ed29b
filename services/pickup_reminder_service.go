package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"battery-erp-backend/models"
	"battery-erp-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"

	ReminderSent   = "sent"
	ReminderFailed = "failed"
)

// MessageSender delivers a text message and returns the provider's message id.
type MessageSender interface {
	Send(to, body, channel string) (string, error)
}

type TwilioSender struct {
	client         *twilio.RestClient
	phoneNumber    string
	whatsAppNumber string
}

func NewTwilioSender(accountSID, authToken, phoneNumber, whatsAppNumber string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		phoneNumber:    phoneNumber,
		whatsAppNumber: whatsAppNumber,
	}
}

func (t *TwilioSender) Send(to, body, channel string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(body)
	if channel == ChannelWhatsApp {
		params.SetTo("whatsapp:" + to)
		params.SetFrom("whatsapp:" + t.whatsAppNumber)
	} else {
		params.SetTo(to)
		params.SetFrom(t.phoneNumber)
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// PickupReminderService texts customers whose repaired battery has been
// waiting on the shelf for too long.
type PickupReminderService struct {
	db       *gorm.DB
	sender   MessageSender
	logger   *zap.Logger
	loc      *time.Location
	days     int
	whatsApp bool
	now      func() time.Time
	cron     *cron.Cron
}

func NewPickupReminderService(db *gorm.DB, sender MessageSender, logger *zap.Logger, loc *time.Location, days int, whatsApp bool) *PickupReminderService {
	if days <= 0 {
		days = 3
	}
	if loc == nil {
		loc = time.Local
	}
	return &PickupReminderService{
		db:       db,
		sender:   sender,
		logger:   logger,
		loc:      loc,
		days:     days,
		whatsApp: whatsApp,
		now:      time.Now,
	}
}

// StartScheduler registers the daily run on spec (standard 5-field cron).
func (s *PickupReminderService) StartScheduler(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := s.SendPickupReminders(context.Background()); err != nil {
			s.logger.Error("pickup reminder run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("pickup reminder scheduler started", zap.String("schedule", spec), zap.Int("days", s.days))
	return nil
}

// Stop waits for a running job to finish.
func (s *PickupReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// readySince is the start of the shop day a battery must have been marked
// Ready before to count as waiting for at least s.days calendar days.
func (s *PickupReminderService) readySince() time.Time {
	today := utils.BeginningOfDay(s.now().In(s.loc))
	return today.AddDate(0, 0, 1-s.days).UTC()
}

// duePickups finds Ready batteries waiting for at least s.days calendar days
// whose customer has not been reminded about them within the same period.
func (s *PickupReminderService) duePickups(db *gorm.DB) ([]models.Battery, error) {
	cutoff := s.readySince()

	reminded := db.Model(&models.PickupReminderLog{}).
		Select("battery_id").
		Where("status = ? AND sent_at >= ?", ReminderSent, cutoff)

	var batteries []models.Battery
	err := db.Preload("Customer").
		Where("status = ? AND customer_id IS NOT NULL", models.StatusReady).
		Where("updated_at < ?", cutoff).
		Where("id NOT IN (?)", reminded).
		Order("inward_date ASC").
		Find(&batteries).Error
	return batteries, err
}

func pickupMessage(shopName string, b models.Battery, daysWaiting int) string {
	name := "customer"
	if b.Customer != nil && strings.TrimSpace(b.Customer.Name) != "" {
		name = b.Customer.Name
	}
	return fmt.Sprintf("Hello %s, your battery %s (%s) is repaired and has been waiting for pickup at %s for %d days.",
		name, b.TrackingID, b.BatteryType, shopName, daysWaiting)
}

// SendPickupReminders runs one reminder pass and returns how many messages went out.
func (s *PickupReminderService) SendPickupReminders(ctx context.Context) (int, error) {
	if s.sender == nil {
		return 0, errors.New("no message sender configured")
	}
	db := s.db.WithContext(ctx)

	shopName, err := settingOrDefault(db, models.SettingShopName, models.DefaultShopName)
	if err != nil {
		return 0, err
	}

	batteries, err := s.duePickups(db)
	if err != nil {
		return 0, fmt.Errorf("failed to find due pickups: %w", err)
	}

	now := s.now().In(s.loc)
	sent := 0
	for _, b := range batteries {
		if b.Customer == nil {
			continue
		}

		channel := ChannelSMS
		if s.whatsApp && strings.HasPrefix(b.Customer.Mobile, "+") {
			channel = ChannelWhatsApp
		}
		message := pickupMessage(shopName, b, utils.DaysBetween(b.UpdatedAt.In(s.loc), now))

		sid, sendErr := s.sender.Send(b.Customer.Mobile, message, channel)
		entry := models.PickupReminderLog{
			BatteryID:  b.ID,
			CustomerID: b.Customer.ID,
			Mobile:     b.Customer.Mobile,
			Message:    message,
			Status:     ReminderSent,
			Channel:    channel,
			SentAt:     s.now().UTC(),
		}
		if sendErr != nil {
			entry.Status = ReminderFailed
			entry.ErrorMessage = sendErr.Error()
			s.logger.Warn("pickup reminder failed",
				zap.String("tracking_id", b.TrackingID),
				zap.String("channel", channel),
				zap.Error(sendErr))
		} else {
			sent++
			s.logger.Info("pickup reminder sent",
				zap.String("tracking_id", b.TrackingID),
				zap.String("channel", channel),
				zap.String("sid", sid))
		}

		if err := db.Create(&entry).Error; err != nil {
			s.logger.Error("failed to log pickup reminder", zap.Uint("battery_id", b.ID), zap.Error(err))
		}
	}
	return sent, nil
}

// History lists reminder attempts for one battery, newest first.
func (s *PickupReminderService) History(ctx context.Context, actor models.Actor, batteryID uint) ([]models.PickupReminderLog, error) {
	if err := Authorize(actor, OpViewBattery); err != nil {
		return nil, err
	}
	var logs []models.PickupReminderLog
	err := s.db.WithContext(ctx).
		Where("battery_id = ?", batteryID).
		Order("sent_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}
	return logs, nil
}
