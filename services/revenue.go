package services

import (
	"context"
	"fmt"
	"time"

	"battery-erp-backend/models"
	"battery-erp-backend/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentBatteriesLimit = 5

// TimeWindow is the half-open range [Start, End) on the intake date.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w *TimeWindow) scope(db *gorm.DB) *gorm.DB {
	if w == nil {
		return db
	}
	return db.Where("batteries.inward_date >= ? AND batteries.inward_date < ?", w.Start.UTC(), w.End.UTC())
}

// StatusFilter restricts Count; empty means every status.
type StatusFilter []models.Status

type MonthBucket struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Count   int64   `json:"count"`
}

// RevenueSummary counts the filtered batteries; the money figures only ever
// cover Ready work.
type RevenueSummary struct {
	Count            int64         `json:"count"`
	CompletedCount   int64         `json:"completedCount"`
	ServiceRevenue   float64       `json:"serviceRevenue"`
	PickupRevenue    float64       `json:"pickupRevenue"`
	TotalRevenue     float64       `json:"totalRevenue"`
	AveragePrice     float64       `json:"averagePrice"`
	MonthlyBreakdown []MonthBucket `json:"monthlyBreakdown,omitempty"`
}

type MonthlyReport struct {
	Label     string           `json:"label"`
	Year      int              `json:"year"`
	Month     int              `json:"month"`
	Summary   *RevenueSummary  `json:"summary"`
	Batteries []models.Battery `json:"batteries"`
}

type YearlyReport struct {
	Year      int              `json:"year"`
	Summary   *RevenueSummary  `json:"summary"`
	Batteries []models.Battery `json:"batteries"`
}

type DashboardStats struct {
	Total          int64            `json:"total"`
	InRepair       int64            `json:"inRepair"`
	Completed      int64            `json:"completed"`
	Delivered      int64            `json:"delivered"`
	NotRepairable  int64            `json:"notRepairable"`
	ServiceRevenue float64          `json:"serviceRevenue"`
	PickupRevenue  float64          `json:"pickupRevenue"`
	TotalRevenue   float64          `json:"totalRevenue"`
	AveragePrice   float64          `json:"averagePrice"`
	Recent         []models.Battery `json:"recent"`
}

type BillsPage struct {
	BatteryPage
	TotalRevenue float64 `json:"totalRevenue"`
}

type RevenueService struct {
	db     *gorm.DB
	logger *zap.Logger
	loc    *time.Location
}

func NewRevenueService(db *gorm.DB, logger *zap.Logger, loc *time.Location) *RevenueService {
	if loc == nil {
		loc = time.Local
	}
	return &RevenueService{db: db, logger: logger, loc: loc}
}

type readyTotals struct {
	Completed int64
	Service   float64
	Pickup    float64
}

func (s *RevenueService) aggregate(db *gorm.DB, filter StatusFilter, window *TimeWindow) (*RevenueSummary, error) {
	var count int64
	if err := db.Model(&models.Battery{}).Scopes(window.scope, withStatus(filter...)).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count batteries: %w", err)
	}

	var totals readyTotals
	err := db.Model(&models.Battery{}).
		Select(`COUNT(*) AS completed,
			COALESCE(SUM(service_price), 0) AS service,
			COALESCE(SUM(CASE WHEN is_pickup THEN pickup_charge ELSE 0 END), 0) AS pickup`).
		Scopes(window.scope, withStatus(models.StatusReady)).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	summary := &RevenueSummary{
		Count:          count,
		CompletedCount: totals.Completed,
		ServiceRevenue: totals.Service,
		PickupRevenue:  totals.Pickup,
		TotalRevenue:   totals.Service + totals.Pickup,
	}
	if totals.Completed > 0 {
		summary.AveragePrice = totals.Service / float64(totals.Completed)
	}
	return summary, nil
}

// Aggregate summarises batteries matching filter inside window (nil = all time).
func (s *RevenueService) Aggregate(ctx context.Context, actor models.Actor, filter StatusFilter, window *TimeWindow) (*RevenueSummary, error) {
	if err := Authorize(actor, OpViewReports); err != nil {
		return nil, err
	}
	for _, st := range filter {
		if !st.Valid() {
			return nil, validationError("unknown status %q", st)
		}
	}
	if window != nil && !window.End.After(window.Start) {
		return nil, validationError("time window end must be after its start")
	}
	return s.aggregate(s.db.WithContext(ctx), filter, window)
}

func (s *RevenueService) batteriesIn(db *gorm.DB, window *TimeWindow) ([]models.Battery, error) {
	var batteries []models.Battery
	err := db.Scopes(window.scope).
		Preload("Customer").
		Order("batteries.inward_date ASC, batteries.id ASC").
		Find(&batteries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load batteries: %w", err)
	}
	return batteries, nil
}

// Monthly reports on batteries taken in during one calendar month in the shop's time zone.
func (s *RevenueService) Monthly(ctx context.Context, actor models.Actor, year int, month time.Month) (*MonthlyReport, error) {
	if err := Authorize(actor, OpViewReports); err != nil {
		return nil, err
	}
	if month < time.January || month > time.December {
		return nil, validationError("month must be between 1 and 12")
	}

	start, end := utils.MonthRange(year, month, s.loc)
	window := &TimeWindow{Start: start, End: end}
	db := s.db.WithContext(ctx)

	summary, err := s.aggregate(db, nil, window)
	if err != nil {
		return nil, err
	}
	batteries, err := s.batteriesIn(db, window)
	if err != nil {
		return nil, err
	}

	return &MonthlyReport{
		Label:     start.Format("January 2006"),
		Year:      year,
		Month:     int(month),
		Summary:   summary,
		Batteries: batteries,
	}, nil
}

// Yearly adds twelve month buckets of Ready work, zero-filled.
func (s *RevenueService) Yearly(ctx context.Context, actor models.Actor, year int) (*YearlyReport, error) {
	if err := Authorize(actor, OpViewReports); err != nil {
		return nil, err
	}

	start, end := utils.YearRange(year, s.loc)
	window := &TimeWindow{Start: start, End: end}
	db := s.db.WithContext(ctx)

	summary, err := s.aggregate(db, nil, window)
	if err != nil {
		return nil, err
	}

	var ready []models.Battery
	err = db.Select("id", "inward_date", "service_price").
		Scopes(window.scope, withStatus(models.StatusReady)).
		Find(&ready).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load completed batteries: %w", err)
	}

	buckets := make([]MonthBucket, 12)
	for i := range buckets {
		buckets[i].Month = time.Month(i + 1).String()
	}
	for _, b := range ready {
		idx := int(b.InwardDate.In(s.loc).Month()) - 1
		buckets[idx].Revenue += b.ServicePrice
		buckets[idx].Count++
	}
	summary.MonthlyBreakdown = buckets

	batteries, err := s.batteriesIn(db, window)
	if err != nil {
		return nil, err
	}

	return &YearlyReport{Year: year, Summary: summary, Batteries: batteries}, nil
}

func (s *RevenueService) countStatus(db *gorm.DB, statuses ...models.Status) (int64, error) {
	var n int64
	if err := db.Model(&models.Battery{}).Scopes(withStatus(statuses...)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count batteries: %w", err)
	}
	return n, nil
}

func (s *RevenueService) Dashboard(ctx context.Context, actor models.Actor) (*DashboardStats, error) {
	if err := Authorize(actor, OpViewDashboard); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	summary, err := s.aggregate(db, nil, nil)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Total:          summary.Count,
		Completed:      summary.CompletedCount,
		ServiceRevenue: summary.ServiceRevenue,
		PickupRevenue:  summary.PickupRevenue,
		TotalRevenue:   summary.TotalRevenue,
		AveragePrice:   summary.AveragePrice,
	}
	if stats.InRepair, err = s.countStatus(db, models.StatusReceived, models.StatusPending); err != nil {
		return nil, err
	}
	if stats.Delivered, err = s.countStatus(db, models.StatusDelivered, models.StatusReturned); err != nil {
		return nil, err
	}
	if stats.NotRepairable, err = s.countStatus(db, models.StatusNotRepairable); err != nil {
		return nil, err
	}

	err = db.Preload("Customer").
		Where("status <> ?", models.StatusNotRepairable).
		Order("inward_date DESC, id DESC").
		Limit(recentBatteriesLimit).
		Find(&stats.Recent).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent batteries: %w", err)
	}
	return stats, nil
}

// BillsSummary pages through priced batteries. TotalRevenue covers all bills:
// every positive service price plus the pickup charge of every pickup.
func (s *RevenueService) BillsSummary(ctx context.Context, actor models.Actor, status models.Status, page int) (*BillsPage, error) {
	if err := Authorize(actor, OpViewBills); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, validationError("unknown status %q", status)
	}
	if page < 1 {
		page = 1
	}

	db := s.db.WithContext(ctx)
	billed := func(db *gorm.DB) *gorm.DB { return db.Where("batteries.service_price > 0") }
	var filter []models.Status
	if status != "" {
		filter = append(filter, status)
	}

	var total int64
	if err := db.Model(&models.Battery{}).Scopes(billed, withStatus(filter...)).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count bills: %w", err)
	}

	var batteries []models.Battery
	err := db.Scopes(billed, withStatus(filter...), paginate(page)).
		Preload("Customer").
		Order("batteries.inward_date DESC, batteries.id DESC").
		Find(&batteries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	var statuses []models.Status
	if err := db.Model(&models.Battery{}).Scopes(billed).Distinct("status").Order("status").Pluck("status", &statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	var sums struct {
		Service float64
		Pickup  float64
	}
	err = db.Model(&models.Battery{}).
		Select(`COALESCE(SUM(CASE WHEN service_price > 0 THEN service_price ELSE 0 END), 0) AS service,
			COALESCE(SUM(CASE WHEN is_pickup THEN pickup_charge ELSE 0 END), 0) AS pickup`).
		Scan(&sums).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum bills: %w", err)
	}

	return &BillsPage{
		BatteryPage: BatteryPage{
			Batteries:  batteries,
			Page:       page,
			PerPage:    PageSize,
			Total:      total,
			TotalPages: totalPages(total),
			Statuses:   statuses,
		},
		TotalRevenue: sums.Service + sums.Pickup,
	}, nil
}
