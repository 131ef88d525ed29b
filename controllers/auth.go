package controllers

import (
	"errors"
	"net/http"

	"battery-erp-backend/config"
	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	Users  *services.UserService
	Config *config.Config
	Logger *zap.Logger
}

// Login checks credentials and issues a JWT
func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	user, err := ac.Users.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		RespondWithServiceError(c, ac.Logger, err)
		return
	}

	token, err := utils.GenerateToken(ac.Config.JWTSecret, ac.Config.JWTExpiryHours, user.ID, user.Username, string(user.Role))
	if err != nil {
		ac.Logger.Error("failed to generate token", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.SetCookie("token", token, ac.Config.JWTExpiryHours*3600, "/", "", ac.Config.IsProduction(), true)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout clears the token cookie
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", ac.Config.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
