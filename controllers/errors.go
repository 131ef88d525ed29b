package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"battery-erp-backend/models"
	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:           http.StatusBadRequest,
	services.KindPermissionDenied:     http.StatusForbidden,
	services.KindNotFound:             http.StatusNotFound,
	services.KindInvalidTransition:    http.StatusConflict,
	services.KindDuplicateIdentifier:  http.StatusConflict,
	services.KindMalformedSnapshot:    http.StatusBadRequest,
	services.KindConfirmationMismatch: http.StatusBadRequest,
}

// RespondWithServiceError reports a service failure. Anything that is not a
// service error kind is logged and hidden behind a 500.
func RespondWithServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status, ok := kindStatus[svcErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.AbortWithStatusJSON(status, gin.H{"error": svcErr.Message, "kind": svcErr.Kind})
		return
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	utils.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
}

const actorKey = "actor"

// ActorMiddleware resolves the authenticated user id into an Actor. It must
// run after utils.AuthMiddleware. Deactivated accounts are turned away.
func ActorMiddleware(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get("userId")
		if !ok {
			utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
			return
		}

		user, err := users.Get(c.Request.Context(), userID.(uint))
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
			return
		}
		if !user.Active {
			utils.RespondWithError(c, http.StatusUnauthorized, "Account is deactivated")
			return
		}

		c.Set(actorKey, user.Actor())
		c.Next()
	}
}

func currentActor(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// uintParam parses a positive id path parameter, writing a 400 on failure.
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
