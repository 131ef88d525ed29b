package controllers

import (
	"net/http"

	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReminderController struct {
	// Nil when Twilio is not configured.
	Reminders *services.PickupReminderService
	Logger    *zap.Logger
}

// GetReminders lists pickup reminders sent for a battery
func (rc *ReminderController) GetReminders(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if rc.Reminders == nil {
		if err := services.Authorize(currentActor(c), services.OpViewBattery); err != nil {
			RespondWithServiceError(c, rc.Logger, err)
			return
		}
		c.JSON(http.StatusOK, []interface{}{})
		return
	}

	logs, err := rc.Reminders.History(c.Request.Context(), currentActor(c), id)
	if err != nil {
		RespondWithServiceError(c, rc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// RunReminders triggers a reminder pass outside the schedule (admin only)
func (rc *ReminderController) RunReminders(c *gin.Context) {
	if err := services.Authorize(currentActor(c), services.OpManageSettings); err != nil {
		RespondWithServiceError(c, rc.Logger, err)
		return
	}
	if rc.Reminders == nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Pickup reminders are not configured")
		return
	}

	sent, err := rc.Reminders.SendPickupReminders(c.Request.Context())
	if err != nil {
		RespondWithServiceError(c, rc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
