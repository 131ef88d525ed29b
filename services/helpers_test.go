package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"battery-erp-backend/config"
	"battery-erp-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

type testActors struct {
	admin models.Actor
	staff models.Actor
	tech  models.Actor
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		Username: username,
		Password: username + "-pass",
		Role:     role,
		FullName: username,
		Active:   true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedActors(t *testing.T, db *gorm.DB) testActors {
	t.Helper()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	staff := createUser(t, db, "staff", models.RoleShopStaff)
	tech := createUser(t, db, "technician", models.RoleTechnician)
	return testActors{admin: admin.Actor(), staff: staff.Actor(), tech: tech.Actor()}
}

type testEnv struct {
	db        *gorm.DB
	actors    testActors
	batteries *BatteryService
	lifecycle *LifecycleService
	revenue   *RevenueService
	backup    *BackupService
	users     *UserService
	settings  *SettingsService
	customers *CustomerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop()
	return &testEnv{
		db:        db,
		actors:    seedActors(t, db),
		batteries: NewBatteryService(db, logger),
		lifecycle: NewLifecycleService(db, logger),
		revenue:   NewRevenueService(db, logger, time.UTC),
		backup:    NewBackupService(db, logger),
		users:     NewUserService(db, logger),
		settings:  NewSettingsService(db, logger),
		customers: NewCustomerService(db, logger),
	}
}

func (e *testEnv) register(t *testing.T, name, mobile string, pickup bool) *models.Battery {
	t.Helper()
	input := RegisterBatteryInput{
		CustomerName: name,
		Mobile:       mobile,
		BatteryType:  "Inverter",
		Voltage:      "12V",
		Capacity:     "150Ah",
		IsPickup:     pickup,
	}
	if pickup {
		input.PickupCharge = 50
	}
	b, err := e.batteries.RegisterBattery(context.Background(), e.actors.staff, input)
	require.NoError(t, err)
	return b
}

// complete moves a freshly registered battery to Ready at price.
func (e *testEnv) complete(t *testing.T, id uint, price float64) *models.Battery {
	t.Helper()
	b, err := e.lifecycle.ApplyTransition(context.Background(), id, models.StatusReady, e.actors.tech, "done", &price)
	require.NoError(t, err)
	return b
}

func (e *testEnv) setInwardDate(t *testing.T, id uint, at time.Time) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Battery{}).Where("id = ?", id).UpdateColumn("inward_date", at.UTC()).Error)
}

func (e *testEnv) historyLen(t *testing.T, id uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.StatusHistory{}).Where("battery_id = ?", id).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T {
	return &v
}

var errHistoryUnavailable = errors.New("history table unavailable")

// failHistoryWrites makes every status history insert on db fail until the test ends.
func failHistoryWrites(t *testing.T, db *gorm.DB) {
	t.Helper()
	const name = "test:fail_status_history"
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.StatusHistory); ok {
			tx.AddError(errHistoryUnavailable)
		}
	}))
	t.Cleanup(func() { db.Callback().Create().Remove(name) })
}
