package controllers

import (
	"net/http"

	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CustomerController struct {
	Customers *services.CustomerService
	Logger    *zap.Logger
}

// GetCustomers lists customers, optionally filtered by ?q= on name or mobile
func (cc *CustomerController) GetCustomers(c *gin.Context) {
	customers, err := cc.Customers.List(c.Request.Context(), currentActor(c), c.Query("q"))
	if err != nil {
		RespondWithServiceError(c, cc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GetCustomer retrieves a customer together with their batteries
func (cc *CustomerController) GetCustomer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	customer, err := cc.Customers.Get(c.Request.Context(), currentActor(c), id)
	if err != nil {
		RespondWithServiceError(c, cc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer changes a customer's name or phone numbers
func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	customer, err := cc.Customers.Update(c.Request.Context(), currentActor(c), id, input)
	if err != nil {
		RespondWithServiceError(c, cc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes a customer with no batteries on record
func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := cc.Customers.Delete(c.Request.Context(), currentActor(c), id); err != nil {
		RespondWithServiceError(c, cc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}
