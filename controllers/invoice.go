package controllers

import (
	"net/http"
	"strconv"

	"battery-erp-backend/models"
	"battery-erp-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InvoiceController serves receipts, bills and the bills listing.
type InvoiceController struct {
	Batteries *services.BatteryService
	Revenue   *services.RevenueService
	Logger    *zap.Logger
}

// Receipt returns the intake receipt for a battery
func (ic *InvoiceController) Receipt(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	doc, err := ic.Batteries.Receipt(c.Request.Context(), currentActor(c), id)
	if err != nil {
		RespondWithServiceError(c, ic.Logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Bill returns the repair bill, service price plus pickup charge
func (ic *InvoiceController) Bill(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	doc, err := ic.Batteries.Bill(c.Request.Context(), currentActor(c), id)
	if err != nil {
		RespondWithServiceError(c, ic.Logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListBills lists billed batteries with a revenue summary
func (ic *InvoiceController) ListBills(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	bills, err := ic.Revenue.BillsSummary(c.Request.Context(), currentActor(c), models.Status(c.Query("status")), page)
	if err != nil {
		RespondWithServiceError(c, ic.Logger, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}
