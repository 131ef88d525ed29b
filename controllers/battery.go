package controllers

import (
	"net/http"
	"strconv"

	"battery-erp-backend/models"
	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UpdateStatusInput struct {
	Status       models.Status `json:"status" binding:"required"`
	Comments     string        `json:"comments"`
	ServicePrice *float64      `json:"servicePrice"`
}

type DeliverInput struct {
	DeliveryType string `json:"deliveryType"`
	Comments     string `json:"comments"`
}

type ReopenInput struct {
	Reason string `json:"reason" binding:"required"`
}

type NoteInput struct {
	Note     string          `json:"note" binding:"required"`
	NoteType models.NoteType `json:"noteType"`
}

type BatteryController struct {
	Batteries *services.BatteryService
	Lifecycle *services.LifecycleService
	Logger    *zap.Logger
}

// Register records a battery handed in at the counter
func (bc *BatteryController) Register(c *gin.Context) {
	var input services.RegisterBatteryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	battery, err := bc.Batteries.RegisterBattery(c.Request.Context(), currentActor(c), input)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, battery)
}

// Details returns a battery with its customer, history and notes
func (bc *BatteryController) Details(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	details, err := bc.Batteries.Details(c.Request.Context(), currentActor(c), id)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// RepairQueue lists batteries waiting on the bench, oldest first, narrowed by ?search=
func (bc *BatteryController) RepairQueue(c *gin.Context) {
	batteries, err := bc.Batteries.RepairQueue(c.Request.Context(), currentActor(c), c.Query("search"))
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, batteries)
}

// Search matches ?q= against tracking id, customer name and mobile
func (bc *BatteryController) Search(c *gin.Context) {
	batteries, err := bc.Batteries.Search(c.Request.Context(), currentActor(c), c.Query("q"))
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, batteries)
}

// ListAll pages through every battery, filtered by ?status=
func (bc *BatteryController) ListAll(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	result, err := bc.Batteries.ListAll(c.Request.Context(), currentActor(c), models.Status(c.Query("status")), page)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delivered lists batteries that went back to their owner
func (bc *BatteryController) Delivered(c *gin.Context) {
	batteries, err := bc.Batteries.Delivered(c.Request.Context(), currentActor(c))
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, batteries)
}

// NotRepairable lists batteries written off by the bench
func (bc *BatteryController) NotRepairable(c *gin.Context) {
	batteries, err := bc.Batteries.NotRepairable(c.Request.Context(), currentActor(c))
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, batteries)
}

// Finished lists repaired batteries waiting for pickup
func (bc *BatteryController) Finished(c *gin.Context) {
	batteries, err := bc.Batteries.Finished(c.Request.Context(), currentActor(c))
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, batteries)
}

// UpdateStatus is the generic transition endpoint used by the repair bench.
func (bc *BatteryController) UpdateStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var input UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	battery, err := bc.Lifecycle.ApplyTransition(c.Request.Context(), id, input.Status, currentActor(c), input.Comments, input.ServicePrice)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, battery)
}

// MarkDelivered closes out a Ready battery as delivered or returned
func (bc *BatteryController) MarkDelivered(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var input DeliverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	battery, err := bc.Lifecycle.MarkDelivered(c.Request.Context(), id, currentActor(c), input.DeliveryType, input.Comments)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, battery)
}

// ReopenForWarranty sends a delivered or returned battery back to the bench
func (bc *BatteryController) ReopenForWarranty(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var input ReopenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Warranty reason is required")
		return
	}

	battery, err := bc.Lifecycle.ReopenForWarranty(c.Request.Context(), id, currentActor(c), input.Reason)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, battery)
}

// AddNote attaches a staff note to a battery
func (bc *BatteryController) AddNote(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var input NoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Note cannot be empty")
		return
	}

	note, err := bc.Batteries.AddNote(c.Request.Context(), currentActor(c), id, input.Note, input.NoteType)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// QuickNote adds a follow-up note from the list views
func (bc *BatteryController) QuickNote(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var input NoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Note cannot be empty")
		return
	}

	note, err := bc.Batteries.QuickNote(c.Request.Context(), currentActor(c), id, input.Note)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// ResolveNote marks a note as handled
func (bc *BatteryController) ResolveNote(c *gin.Context) {
	id, ok := uintParam(c, "noteId")
	if !ok {
		return
	}
	note, err := bc.Batteries.ResolveNote(c.Request.Context(), currentActor(c), id)
	if err != nil {
		RespondWithServiceError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, note)
}
