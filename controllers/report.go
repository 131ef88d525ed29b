package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"battery-erp-backend/models"
	"battery-erp-backend/services"
	"battery-erp-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const reportDateLayout = "2006-01-02"

// ReportController handles revenue reports and the CSV export
type ReportController struct {
	Revenue  *services.RevenueService
	Export   *services.ExportService
	Location *time.Location
	Logger   *zap.Logger
}

func (rc *ReportController) now() time.Time {
	return time.Now().In(rc.Location)
}

// GetMonthlyReport defaults to the current month.
func (rc *ReportController) GetMonthlyReport(c *gin.Context) {
	now := rc.now()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid year")
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid month")
		return
	}

	report, err := rc.Revenue.Monthly(c.Request.Context(), currentActor(c), year, time.Month(month))
	if err != nil {
		RespondWithServiceError(c, rc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetYearlyReport defaults to the current year.
func (rc *ReportController) GetYearlyReport(c *gin.Context) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(rc.now().Year())))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid year")
		return
	}

	report, err := rc.Revenue.Yearly(c.Request.Context(), currentActor(c), year)
	if err != nil {
		RespondWithServiceError(c, rc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetRevenue aggregates over ?status=a,b and an optional ?from=&to= date range (to is exclusive).
func (rc *ReportController) GetRevenue(c *gin.Context) {
	var filter services.StatusFilter
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			filter = append(filter, models.Status(s))
		}
	}

	var window *services.TimeWindow
	from, to := c.Query("from"), c.Query("to")
	if from != "" || to != "" {
		start, err := time.ParseInLocation(reportDateLayout, from, rc.Location)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		end, err := time.ParseInLocation(reportDateLayout, to, rc.Location)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		window = &services.TimeWindow{Start: start, End: end}
	}

	summary, err := rc.Revenue.Aggregate(c.Request.Context(), currentActor(c), filter, window)
	if err != nil {
		RespondWithServiceError(c, rc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ExportCSV downloads every battery as a CSV file
func (rc *ReportController) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := rc.Export.WriteBatteriesCSV(c.Request.Context(), currentActor(c), &buf); err != nil {
		RespondWithServiceError(c, rc.Logger, err)
		return
	}

	filename := fmt.Sprintf("battery_records_%s.csv", rc.now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
