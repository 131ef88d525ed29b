package controllers

import (
	"net/http"

	"battery-erp-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardController struct {
	Revenue  *services.RevenueService
	Settings *services.SettingsService
	Logger   *zap.Logger
}

// GetDashboard returns the counters, revenue and recent intake shown on the home screen.
func (dc *DashboardController) GetDashboard(c *gin.Context) {
	stats, err := dc.Revenue.Dashboard(c.Request.Context(), currentActor(c))
	if err != nil {
		RespondWithServiceError(c, dc.Logger, err)
		return
	}
	shopName, err := dc.Settings.ShopName(c.Request.Context())
	if err != nil {
		RespondWithServiceError(c, dc.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shopName": shopName,
		"stats":    stats,
	})
}
