package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"battery-erp-backend/models"

	"gorm.io/gorm"
)

const csvTimeLayout = "2006-01-02 15:04"

var csvHeader = []string{
	"Battery ID", "Customer Name", "Mobile", "Battery Type",
	"Voltage", "Capacity", "Status", "Inward Date",
	"Service Price", "Last Updated",
}

type ExportService struct {
	db  *gorm.DB
	loc *time.Location
}

func NewExportService(db *gorm.DB, loc *time.Location) *ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &ExportService{db: db, loc: loc}
}

// WriteBatteriesCSV writes one row per battery. Last Updated is the latest
// history entry, or the intake date when there is none.
func (s *ExportService) WriteBatteriesCSV(ctx context.Context, actor models.Actor, w io.Writer) error {
	if err := Authorize(actor, OpExportCSV); err != nil {
		return err
	}

	var batteries []models.Battery
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("updated_at ASC, id ASC") }).
		Order("id ASC").
		Find(&batteries).Error
	if err != nil {
		return fmt.Errorf("failed to load batteries: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range batteries {
		var name, mobile string
		if b.Customer != nil {
			name, mobile = b.Customer.Name, b.Customer.Mobile
		}
		lastUpdate := b.InwardDate
		if n := len(b.StatusHistory); n > 0 {
			lastUpdate = b.StatusHistory[n-1].UpdatedAt
		}
		row := []string{
			b.TrackingID,
			name,
			mobile,
			b.BatteryType,
			b.Voltage,
			b.Capacity,
			string(b.Status),
			b.InwardDate.In(s.loc).Format(csvTimeLayout),
			strconv.FormatFloat(b.ServicePrice, 'f', -1, 64),
			lastUpdate.In(s.loc).Format(csvTimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
