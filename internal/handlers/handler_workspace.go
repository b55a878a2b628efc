package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsarc/paperflow/internal/apperrors"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/dto"
	"github.com/opsarc/paperflow/internal/middleware"
)

// workspaceHandler handles HTTP requests related to workspaces.
type workspaceHandler struct {
	workspaceService portssvc.WorkspaceSvcFacade
}

// newWorkspaceHandler creates a new workspaceHandler.
func newWorkspaceHandler(ws portssvc.WorkspaceSvcFacade) *workspaceHandler {
	return &workspaceHandler{
		workspaceService: ws,
	}
}

// registerWorkspaceRoutes registers routes related to workspaces.
// It also registers the account, transaction, reporting, workflow and
// approval routes nested under a specific workspace.
func registerWorkspaceRoutes(
	rg *gin.RouterGroup,
	workspaceService portssvc.WorkspaceSvcFacade,
	accountService portssvc.AccountSvcFacade,
	ledgerService portssvc.LedgerSvcFacade,
	workflowService portssvc.WorkflowSvcFacade,
	approvalService portssvc.ApprovalSvcFacade,
) {
	h := newWorkspaceHandler(workspaceService)

	// Routes for managing workspaces themselves
	workspacesTopLevel := rg.Group("/workspaces")
	{
		workspacesTopLevel.POST("", h.createWorkspace)
		workspacesTopLevel.GET("", h.listWorkspaces)
	}

	// Routes specific to a single workspace (identified by workspace_id)
	workspaceSpecific := rg.Group("/workspaces/:workspace_id")
	{
		workspaceSpecific.GET("", h.getWorkspace)
		workspaceSpecific.DELETE("", h.deactivateWorkspace)

		// -- NESTED RESOURCE ROUTES --
		// Everything a workspace owns is registered relative to this group.
		registerAccountRoutes(workspaceSpecific, accountService, ledgerService)
		registerTransactionRoutes(workspaceSpecific, ledgerService)
		registerReportingRoutes(workspaceSpecific, ledgerService)
		registerWorkflowRoutes(workspaceSpecific, workflowService)
		registerApprovalRoutes(workspaceSpecific, approvalService)
	}
}

// createWorkspace godoc
// @Summary Create a new workspace
// @Description Creates a new workspace and seeds its default chart of accounts unless skipped.
// @Tags workspaces
// @Accept  json
// @Produce  json
// @Param   workspace body dto.CreateWorkspaceRequest true "Workspace details"
// @Success 201 {object} dto.WorkspaceResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 500 {object} map[string]string "Failed to create workspace"
// @Router /workspaces [post]
func (h *workspaceHandler) createWorkspace(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateWorkspace", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		actorID = middleware.DefaultActorID
	}

	logger = logger.With(slog.String("actor_id", actorID))
	logger.Info("Received request to create workspace", slog.String("workspace_name", req.Name))

	newWorkspace, err := h.workspaceService.CreateWorkspace(c.Request.Context(), req, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating workspace", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create workspace in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create workspace"})
		}
		return
	}

	logger.Info("Workspace created successfully", slog.String("workspace_id", newWorkspace.WorkspaceID))
	c.JSON(http.StatusCreated, dto.ToWorkspaceResponse(newWorkspace))
}

// listWorkspaces godoc
// @Summary List workspaces
// @Description Retrieves a paginated list of workspaces.
// @Tags workspaces
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListWorkspacesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list workspaces"
// @Router /workspaces [get]
func (h *workspaceHandler) listWorkspaces(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListWorkspacesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListWorkspaces", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	logger.Info("Received request to list workspaces", slog.Int("limit", params.Limit), slog.Int("offset", params.Offset))

	workspaces, err := h.workspaceService.ListWorkspaces(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list workspaces from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list workspaces"})
		return
	}

	logger.Info("Workspaces listed successfully", slog.Int("count", len(workspaces)))
	c.JSON(http.StatusOK, dto.ToListWorkspacesResponse(workspaces))
}

// getWorkspace godoc
// @Summary Get a workspace by ID
// @Description Retrieves details for a specific workspace.
// @Tags workspaces
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Success 200 {object} dto.WorkspaceResponse
// @Failure 404 {object} map[string]string "Workspace not found"
// @Failure 500 {object} map[string]string "Failed to retrieve workspace"
// @Router /workspaces/{workspace_id} [get]
func (h *workspaceHandler) getWorkspace(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")

	logger = logger.With(slog.String("workspace_id", workspaceID))
	logger.Info("Received request to get workspace")

	workspace, err := h.workspaceService.GetWorkspaceByID(c.Request.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Workspace not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		} else {
			logger.Error("Failed to get workspace from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve workspace"})
		}
		return
	}

	logger.Info("Workspace retrieved successfully")
	c.JSON(http.StatusOK, dto.ToWorkspaceResponse(workspace))
}

// deactivateWorkspace godoc
// @Summary Deactivate a workspace
// @Description Marks a workspace as inactive. Its data stays readable but new writes are rejected.
// @Tags workspaces
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Workspace not found"
// @Failure 409 {object} map[string]string "Workspace already inactive"
// @Failure 500 {object} map[string]string "Failed to deactivate workspace"
// @Router /workspaces/{workspace_id} [delete]
func (h *workspaceHandler) deactivateWorkspace(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")

	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		actorID = middleware.DefaultActorID
	}

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("actor_id", actorID))
	logger.Info("Received request to deactivate workspace")

	if err := h.workspaceService.DeactivateWorkspace(c.Request.Context(), workspaceID, actorID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Workspace not found for deactivation")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		} else if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Workspace already inactive", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": "Workspace already inactive"})
		} else {
			logger.Error("Failed to deactivate workspace in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate workspace"})
		}
		return
	}

	logger.Info("Workspace deactivated successfully")
	c.Status(http.StatusNoContent)
}
