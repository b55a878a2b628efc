package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opsarc/paperflow/internal/apperrors"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/dto"
	"github.com/opsarc/paperflow/internal/middleware"
)

// reportingHandler handles HTTP requests related to derived ledger reports.
type reportingHandler struct {
	ledgerService portssvc.LedgerCalculatorSvc
}

// newReportingHandler creates a new reportingHandler.
func newReportingHandler(ls portssvc.LedgerCalculatorSvc) *reportingHandler {
	return &reportingHandler{
		ledgerService: ls,
	}
}

// registerReportingRoutes registers report routes nested under a workspace.
func registerReportingRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerCalculatorSvc) {
	h := newReportingHandler(ledgerService)

	reports := rg.Group("/reports")
	{
		reports.GET("/trial-balance", h.getTrialBalance)
	}
}

// getTrialBalance godoc
// @Summary Generate a trial balance report
// @Description Aggregates every account's posted activity into debit and credit totals. The report's debit and credit grand totals agree for a consistent ledger.
// @Tags reports
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   asOf query string false "Report cut-off date (YYYY-MM-DD), defaults to now"
// @Success 200 {object} dto.TrialBalanceResponse
// @Failure 400 {object} map[string]string "Invalid date format"
// @Failure 404 {object} map[string]string "Workspace not found"
// @Failure 500 {object} map[string]string "Failed to generate report"
// @Router /workspaces/{workspace_id}/reports/trial-balance [get]
func (h *reportingHandler) getTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")

	asOf, err := parseAsOfQuery(c)
	if err != nil {
		logger.Warn("Invalid asOf date format", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}

	logger = logger.With(slog.String("workspace_id", workspaceID))
	logger.Info("Received request for trial balance report")

	report, err := h.ledgerService.GetTrialBalance(c.Request.Context(), workspaceID, asOf)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Workspace not found for trial balance")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		} else {
			logger.Error("Failed to generate trial balance", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		}
		return
	}

	effectiveAsOf := time.Now()
	if asOf != nil {
		effectiveAsOf = *asOf
	}

	logger.Info("Trial balance generated successfully", slog.Int("row_count", len(report.Rows)))
	c.JSON(http.StatusOK, dto.ToTrialBalanceResponse(report, effectiveAsOf))
}
