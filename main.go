package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battery-erp-backend/config"
	"battery-erp-backend/controllers"
	"battery-erp-backend/routes"
	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			logger.Fatal("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = utils.GenerateJWTSecret()
		logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := config.Migrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	ctx := context.Background()
	loc := cfg.Location()

	userService := services.NewUserService(db, logger)
	settingsService := services.NewSettingsService(db, logger)
	batteryService := services.NewBatteryService(db, logger)
	lifecycleService := services.NewLifecycleService(db, logger)
	revenueService := services.NewRevenueService(db, logger, loc)
	backupService := services.NewBackupService(db, logger)
	customerService := services.NewCustomerService(db, logger)
	exportService := services.NewExportService(db, loc)

	if err := userService.SeedDefaults(ctx); err != nil {
		logger.Fatal("seeding users failed", zap.Error(err))
	}
	if err := settingsService.SeedDefaults(ctx); err != nil {
		logger.Fatal("seeding settings failed", zap.Error(err))
	}

	var reminderService *services.PickupReminderService
	if cfg.TwilioAccountSID != "" {
		sender := services.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.TwilioWhatsAppNumber)
		reminderService = services.NewPickupReminderService(db, sender, logger, loc, cfg.PickupReminderDays, cfg.TwilioWhatsAppNumber != "")
		if err := reminderService.StartScheduler(cfg.PickupReminderCron); err != nil {
			logger.Fatal("reminder scheduler failed", zap.Error(err))
		}
		defer reminderService.Stop()
	} else {
		logger.Info("TWILIO_ACCOUNT_SID not set, pickup reminders disabled")
	}

	handlers := &routes.Handlers{
		Users:     userService,
		Auth:      &controllers.AuthController{Users: userService, Config: cfg, Logger: logger},
		Profile:   &controllers.ProfileController{Users: userService, Logger: logger},
		Battery:   &controllers.BatteryController{Batteries: batteryService, Lifecycle: lifecycleService, Logger: logger},
		Invoice:   &controllers.InvoiceController{Batteries: batteryService, Revenue: revenueService, Logger: logger},
		Dashboard: &controllers.DashboardController{Revenue: revenueService, Settings: settingsService, Logger: logger},
		Report:    &controllers.ReportController{Revenue: revenueService, Export: exportService, Location: loc, Logger: logger},
		Customer:  &controllers.CustomerController{Customers: customerService, Logger: logger},
		Admin:     &controllers.AdminController{Users: userService, Settings: settingsService, Backup: backupService, Logger: logger},
		Reminder:  &controllers.ReminderController{Reminders: reminderService, Logger: logger},
	}

	r := routes.SetupRouter(cfg, logger, handlers)
	if !cfg.IsProduction() {
		printRoutes(r)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
