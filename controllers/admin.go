package controllers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxBackupSize caps restore uploads.
const maxBackupSize = 32 << 20

type AdminController struct {
	Users    *services.UserService
	Settings *services.SettingsService
	Backup   *services.BackupService
	Logger   *zap.Logger
}

// ListUsers returns every account, active or not
func (ac *AdminController) ListUsers(c *gin.Context) {
	users, err := ac.Users.List(c.Request.Context(), currentActor(c))
	if err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser adds a staff, technician or admin account
func (ac *AdminController) CreateUser(c *gin.Context) {
	var input services.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := ac.Users.Create(c.Request.Context(), currentActor(c), input)
	if err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ToggleUser flips a user between active and inactive. Admins cannot toggle themselves.
func (ac *AdminController) ToggleUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	user, err := ac.Users.ToggleActive(c.Request.Context(), currentActor(c), id)
	if err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetSettings returns the shop name and tracking id scheme
func (ac *AdminController) GetSettings(c *gin.Context) {
	if err := services.Authorize(currentActor(c), services.OpManageSettings); err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}
	settings, err := ac.Settings.Get(c.Request.Context())
	if err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings saves the shop name and id scheme; a scheme change restarts numbering
func (ac *AdminController) UpdateSettings(c *gin.Context) {
	var input services.UpdateSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	settings, err := ac.Settings.Update(c.Request.Context(), currentActor(c), input)
	if err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// DownloadBackup streams the snapshot as a JSON attachment.
func (ac *AdminController) DownloadBackup(c *gin.Context) {
	data, err := ac.Backup.ExportJSON(c.Request.Context(), currentActor(c))
	if err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}

	filename := fmt.Sprintf("battery_erp_backup_%s.json", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/json", data)
}

// Restore takes a multipart upload: backup_file (.json) plus confirm_restore.
func (ac *AdminController) Restore(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBackupSize)

	fileHeader, err := c.FormFile("backup_file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "No file selected")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".json") {
		utils.RespondWithError(c, http.StatusBadRequest, "Please upload a valid JSON backup file")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Could not read backup file")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Could not read backup file")
		return
	}

	result, err := ac.Backup.Restore(c.Request.Context(), payload, c.PostForm("confirm_restore"), currentActor(c))
	if err != nil {
		RespondWithServiceError(c, ac.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
