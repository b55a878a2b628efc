package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsarc/paperflow/internal/apperrors"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/core/services"
	"github.com/opsarc/paperflow/internal/dto"
	"github.com/opsarc/paperflow/internal/middleware"
)

// approvalHandler handles HTTP requests related to approval requests.
type approvalHandler struct {
	approvalService portssvc.ApprovalSvcFacade
}

// newApprovalHandler creates a new approvalHandler.
func newApprovalHandler(as portssvc.ApprovalSvcFacade) *approvalHandler {
	return &approvalHandler{
		approvalService: as,
	}
}

// registerApprovalRoutes registers approval routes nested under a workspace.
func registerApprovalRoutes(rg *gin.RouterGroup, approvalService portssvc.ApprovalSvcFacade) {
	h := newApprovalHandler(approvalService)

	approvals := rg.Group("/approvals")
	{
		approvals.GET("", h.listApprovals)
		approvals.GET("/:approval_request_id", h.getApprovalRequest)
		approvals.POST("/:approval_request_id/approve", h.approveRequest)
		approvals.POST("/:approval_request_id/reject", h.rejectRequest)
	}
}

// listApprovals godoc
// @Summary List approval requests in a workspace
// @Description Retrieves approval requests, newest first, optionally filtered by status.
// @Tags approvals
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   status query string false "Filter by status" Enums(PENDING, APPROVED, REJECTED)
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListApprovalsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 404 {object} map[string]string "Workspace not found"
// @Failure 500 {object} map[string]string "Failed to list approval requests"
// @Router /workspaces/{workspace_id}/approvals [get]
func (h *approvalHandler) listApprovals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")

	var params dto.ListApprovalsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListApprovals", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	logger = logger.With(slog.String("workspace_id", workspaceID))
	logger.Info("Received request to list approval requests", slog.Int("limit", params.Limit))

	approvals, err := h.approvalService.ListApprovals(c.Request.Context(), workspaceID, params.Status, params.Limit, params.Offset)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Workspace not found listing approval requests")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		} else {
			logger.Error("Failed to list approval requests from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list approval requests"})
		}
		return
	}

	logger.Info("Approval requests listed successfully", slog.Int("count", len(approvals)))
	c.JSON(http.StatusOK, dto.ToListApprovalsResponse(approvals))
}

// getApprovalRequest godoc
// @Summary Get an approval request by ID
// @Description Retrieves an approval request with the step parameters under review.
// @Tags approvals
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   approval_request_id path string true "Approval request ID"
// @Success 200 {object} dto.ApprovalRequestResponse
// @Failure 404 {object} map[string]string "Approval request not found"
// @Failure 500 {object} map[string]string "Failed to retrieve approval request"
// @Router /workspaces/{workspace_id}/approvals/{approval_request_id} [get]
func (h *approvalHandler) getApprovalRequest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	approvalRequestID := c.Param("approval_request_id")

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("approval_request_id", approvalRequestID))
	logger.Info("Received request to get approval request")

	approval, err := h.approvalService.GetApprovalRequestByID(c.Request.Context(), workspaceID, approvalRequestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Approval request not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Approval request not found"})
		} else {
			logger.Error("Failed to get approval request from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve approval request"})
		}
		return
	}

	logger.Info("Approval request retrieved successfully")
	c.JSON(http.StatusOK, dto.ToApprovalRequestResponse(approval))
}

// approveRequest godoc
// @Summary Approve a pending approval request
// @Description Resolves a PENDING request as APPROVED. The paused execution stays paused until it is resumed explicitly.
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   approval_request_id path string true "Approval request ID"
// @Param   approval body dto.ApproveRequest false "Optional approver override"
// @Success 200 {object} dto.ApprovalRequestResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Approval request not found"
// @Failure 409 {object} map[string]string "Approval request already resolved"
// @Failure 500 {object} map[string]string "Failed to approve request"
// @Router /workspaces/{workspace_id}/approvals/{approval_request_id}/approve [post]
func (h *approvalHandler) approveRequest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	approvalRequestID := c.Param("approval_request_id")

	var req dto.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for ApproveRequest", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
			return
		}
	}

	approverID := req.ApproverID
	if approverID == "" {
		if actorID, ok := middleware.GetActorIDFromContext(c); ok {
			approverID = actorID
		} else {
			approverID = middleware.DefaultActorID
		}
	}

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("approval_request_id", approvalRequestID), slog.String("approver_id", approverID))
	logger.Info("Received request to approve")

	approval, err := h.approvalService.Approve(c.Request.Context(), workspaceID, approvalRequestID, approverID)
	if err != nil {
		h.respondApprovalError(c, logger, err, "Failed to approve request")
		return
	}

	logger.Info("Approval request approved")
	c.JSON(http.StatusOK, dto.ToApprovalRequestResponse(approval))
}

// rejectRequest godoc
// @Summary Reject a pending approval request
// @Description Resolves a PENDING request as REJECTED with a mandatory reason and fails the paused execution.
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   approval_request_id path string true "Approval request ID"
// @Param   rejection body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} dto.ApprovalRequestResponse
// @Failure 400 {object} map[string]string "Missing reason or invalid input"
// @Failure 404 {object} map[string]string "Approval request not found"
// @Failure 409 {object} map[string]string "Approval request already resolved"
// @Failure 500 {object} map[string]string "Failed to reject request"
// @Router /workspaces/{workspace_id}/approvals/{approval_request_id}/reject [post]
func (h *approvalHandler) rejectRequest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	approvalRequestID := c.Param("approval_request_id")

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RejectRequest", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	approverID := req.ApproverID
	if approverID == "" {
		if actorID, ok := middleware.GetActorIDFromContext(c); ok {
			approverID = actorID
		} else {
			approverID = middleware.DefaultActorID
		}
	}

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("approval_request_id", approvalRequestID), slog.String("approver_id", approverID))
	logger.Info("Received request to reject")

	approval, err := h.approvalService.Reject(c.Request.Context(), workspaceID, approvalRequestID, approverID, req.Reason)
	if err != nil {
		h.respondApprovalError(c, logger, err, "Failed to reject request")
		return
	}

	logger.Info("Approval request rejected")
	c.JSON(http.StatusOK, dto.ToApprovalRequestResponse(approval))
}

// respondApprovalError maps approval service errors to HTTP statuses.
func (h *approvalHandler) respondApprovalError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Approval request not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": "Approval request not found"})
	case errors.Is(err, services.ErrApprovalAlreadyResolved):
		logger.Warn("Approval request already resolved", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Execution state rejects the resolution", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error resolving approval request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
