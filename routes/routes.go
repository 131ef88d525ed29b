package routes

import (
	"battery-erp-backend/config"
	"battery-erp-backend/controllers"
	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles every controller the router mounts.
type Handlers struct {
	Users *services.UserService

	Auth      *controllers.AuthController
	Profile   *controllers.ProfileController
	Battery   *controllers.BatteryController
	Invoice   *controllers.InvoiceController
	Dashboard *controllers.DashboardController
	Report    *controllers.ReportController
	Customer  *controllers.CustomerController
	Admin     *controllers.AdminController
	Reminder  *controllers.ReminderController
}

func SetupRouter(cfg *config.Config, logger *zap.Logger, h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(utils.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger(logger))

	limiter := utils.NewLoginRateLimiter(cfg.LoginRatePerMin, logger)
	authenticated := []gin.HandlerFunc{utils.AuthMiddleware(cfg.JWTSecret), controllers.ActorMiddleware(h.Users)}

	auth := r.Group("/auth")
	{
		auth.POST("/login", limiter.Middleware(), h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)

		me := auth.Group("", authenticated...)
		me.GET("/me", h.Profile.GetProfile)
		me.PUT("/password", h.Profile.ChangePassword)
	}

	api := r.Group("/api", authenticated...)
	{
		api.GET("/dashboard", h.Dashboard.GetDashboard)

		batteries := api.Group("/batteries")
		{
			batteries.POST("", h.Battery.Register)
			batteries.GET("", h.Battery.ListAll)
			batteries.GET("/queue", h.Battery.RepairQueue)
			batteries.GET("/search", h.Battery.Search)
			batteries.GET("/delivered", h.Battery.Delivered)
			batteries.GET("/not-repairable", h.Battery.NotRepairable)
			batteries.GET("/finished", h.Battery.Finished)
			batteries.GET("/:id", h.Battery.Details)
			batteries.PUT("/:id/status", h.Battery.UpdateStatus)
			batteries.POST("/:id/deliver", h.Battery.MarkDelivered)
			batteries.POST("/:id/reopen", h.Battery.ReopenForWarranty)
			batteries.POST("/:id/notes", h.Battery.AddNote)
			batteries.POST("/:id/quick-note", h.Battery.QuickNote)
			batteries.GET("/:id/receipt", h.Invoice.Receipt)
			batteries.GET("/:id/bill", h.Invoice.Bill)
			batteries.GET("/:id/reminders", h.Reminder.GetReminders)
		}

		api.PUT("/notes/:noteId/resolve", h.Battery.ResolveNote)
		api.GET("/bills", h.Invoice.ListBills)

		customers := api.Group("/customers")
		{
			customers.GET("", h.Customer.GetCustomers)
			customers.GET("/:id", h.Customer.GetCustomer)
			customers.PUT("/:id", h.Customer.UpdateCustomer)
			customers.DELETE("/:id", h.Customer.DeleteCustomer)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/revenue", h.Report.GetRevenue)
			reports.GET("/monthly", h.Report.GetMonthlyReport)
			reports.GET("/yearly", h.Report.GetYearlyReport)
			reports.GET("/export.csv", h.Report.ExportCSV)
		}

		api.GET("/backup", h.Admin.DownloadBackup)

		admin := api.Group("/admin")
		{
			admin.GET("/users", h.Admin.ListUsers)
			admin.POST("/users", h.Admin.CreateUser)
			admin.POST("/users/:id/toggle", h.Admin.ToggleUser)
			admin.GET("/settings", h.Admin.GetSettings)
			admin.PUT("/settings", h.Admin.UpdateSettings)
			admin.POST("/restore", h.Admin.Restore)
			admin.POST("/reminders/run", h.Reminder.RunReminders)
		}
	}

	return r
}
