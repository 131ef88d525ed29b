package controllers

import (
	"net/http"

	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type ProfileController struct {
	Users  *services.UserService
	Logger *zap.Logger
}

// GetProfile returns the signed-in user
func (pc *ProfileController) GetProfile(c *gin.Context) {
	user, err := pc.Users.Get(c.Request.Context(), currentActor(c).ID)
	if err != nil {
		RespondWithServiceError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the caller's password after checking the current one
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if err := pc.Users.ChangePassword(c.Request.Context(), currentActor(c), input.CurrentPassword, input.NewPassword); err != nil {
		RespondWithServiceError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}
