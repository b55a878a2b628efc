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

// workflowHandler handles HTTP requests related to workflow executions.
type workflowHandler struct {
	workflowService portssvc.WorkflowSvcFacade
}

// newWorkflowHandler creates a new workflowHandler.
func newWorkflowHandler(ws portssvc.WorkflowSvcFacade) *workflowHandler {
	return &workflowHandler{
		workflowService: ws,
	}
}

// registerWorkflowRoutes registers workflow execution routes nested under a workspace.
func registerWorkflowRoutes(rg *gin.RouterGroup, workflowService portssvc.WorkflowSvcFacade) {
	h := newWorkflowHandler(workflowService)

	workflows := rg.Group("/workflows")
	{
		workflows.POST("/:definition_id/executions", h.executeWorkflow)
	}

	executions := rg.Group("/executions")
	{
		executions.GET("", h.listExecutions)
		executions.GET("/:execution_id", h.getExecution)
		executions.POST("/:execution_id/resume", h.resumeExecution)
		executions.POST("/:execution_id/cancel", h.cancelExecution)
	}
}

// executeWorkflow godoc
// @Summary Start a workflow execution
// @Description Starts a new execution of a registered workflow definition and runs it until it completes, pauses for approval or fails. The returned execution's status tells which.
// @Tags workflows
// @Accept  json
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   definition_id path string true "Workflow definition ID"
// @Param   execution body dto.ExecuteWorkflowRequest true "Execution input"
// @Success 201 {object} dto.ExecutionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Workspace or workflow definition not found"
// @Failure 409 {object} map[string]string "Execution was modified concurrently"
// @Failure 500 {object} map[string]string "Failed to start execution"
// @Router /workspaces/{workspace_id}/workflows/{definition_id}/executions [post]
func (h *workflowHandler) executeWorkflow(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	definitionID := c.Param("definition_id")

	var req dto.ExecuteWorkflowRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for ExecuteWorkflow", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
			return
		}
	}

	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		actorID = middleware.DefaultActorID
	}

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("definition_id", definitionID), slog.String("actor_id", actorID))
	logger.Info("Received request to execute workflow")

	execution, err := h.workflowService.ExecuteWorkflow(c.Request.Context(), workspaceID, definitionID, req.Input, actorID)
	if err != nil {
		h.respondExecutionError(c, logger, err, "Failed to start execution")
		return
	}

	logger.Info("Workflow execution finished its run",
		slog.String("execution_id", execution.ExecutionID),
		slog.String("status", string(execution.Status)))
	c.JSON(http.StatusCreated, dto.ToExecutionResponse(execution))
}

// getExecution godoc
// @Summary Get a workflow execution by ID
// @Description Retrieves a workflow execution with its recorded inputs, step parameters and outputs.
// @Tags workflows
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   execution_id path string true "Execution ID"
// @Success 200 {object} dto.ExecutionResponse
// @Failure 404 {object} map[string]string "Execution not found"
// @Failure 500 {object} map[string]string "Failed to retrieve execution"
// @Router /workspaces/{workspace_id}/executions/{execution_id} [get]
func (h *workflowHandler) getExecution(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	executionID := c.Param("execution_id")

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("execution_id", executionID))
	logger.Info("Received request to get execution")

	execution, err := h.workflowService.GetExecutionByID(c.Request.Context(), workspaceID, executionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Execution not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Execution not found"})
		} else {
			logger.Error("Failed to get execution from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve execution"})
		}
		return
	}

	logger.Info("Execution retrieved successfully")
	c.JSON(http.StatusOK, dto.ToExecutionResponse(execution))
}

// listExecutions godoc
// @Summary List workflow executions in a workspace
// @Description Retrieves a page of executions, newest first, with a cursor for the next page.
// @Tags workflows
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   limit query int false "Limit number of results" default(20)
// @Param   nextToken query string false "Cursor returned by the previous page"
// @Success 200 {object} dto.ListExecutionsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 404 {object} map[string]string "Workspace not found"
// @Failure 500 {object} map[string]string "Failed to list executions"
// @Router /workspaces/{workspace_id}/executions [get]
func (h *workflowHandler) listExecutions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")

	var params dto.ListExecutionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListExecutions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	logger = logger.With(slog.String("workspace_id", workspaceID))
	logger.Info("Received request to list executions", slog.Int("limit", params.Limit))

	resp, err := h.workflowService.ListExecutions(c.Request.Context(), workspaceID, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Workspace not found listing executions")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		} else {
			logger.Error("Failed to list executions from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list executions"})
		}
		return
	}

	logger.Info("Executions listed successfully", slog.Int("count", len(resp.Executions)))
	c.JSON(http.StatusOK, resp)
}

// resumeExecution godoc
// @Summary Resume a paused workflow execution
// @Description Re-enters a WAITING_APPROVAL execution at its paused step using the parameters recorded when it paused. The step's approval request must be approved first.
// @Tags workflows
// @Accept  json
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   execution_id path string true "Execution ID"
// @Param   resume body dto.ResumeWorkflowRequest false "Optional step override"
// @Success 200 {object} dto.ExecutionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Execution not found"
// @Failure 409 {object} map[string]string "Execution is not paused or the step was not approved"
// @Failure 500 {object} map[string]string "Failed to resume execution"
// @Router /workspaces/{workspace_id}/executions/{execution_id}/resume [post]
func (h *workflowHandler) resumeExecution(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	executionID := c.Param("execution_id")

	var req dto.ResumeWorkflowRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for ResumeExecution", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
			return
		}
	}

	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		actorID = middleware.DefaultActorID
	}

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("execution_id", executionID), slog.String("actor_id", actorID))
	logger.Info("Received request to resume execution", slog.String("step_id", req.StepID))

	execution, err := h.workflowService.ResumeWorkflow(c.Request.Context(), workspaceID, executionID, req.StepID, actorID)
	if err != nil {
		h.respondExecutionError(c, logger, err, "Failed to resume execution")
		return
	}

	logger.Info("Execution resumed",
		slog.String("execution_id", execution.ExecutionID),
		slog.String("status", string(execution.Status)))
	c.JSON(http.StatusOK, dto.ToExecutionResponse(execution))
}

// cancelExecution godoc
// @Summary Cancel a workflow execution
// @Description Moves a RUNNING or WAITING_APPROVAL execution to CANCELLED. Terminal executions cannot be cancelled.
// @Tags workflows
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   execution_id path string true "Execution ID"
// @Success 200 {object} dto.ExecutionResponse
// @Failure 404 {object} map[string]string "Execution not found"
// @Failure 409 {object} map[string]string "Execution already finished"
// @Failure 500 {object} map[string]string "Failed to cancel execution"
// @Router /workspaces/{workspace_id}/executions/{execution_id}/cancel [post]
func (h *workflowHandler) cancelExecution(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	executionID := c.Param("execution_id")

	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		actorID = middleware.DefaultActorID
	}

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("execution_id", executionID), slog.String("actor_id", actorID))
	logger.Info("Received request to cancel execution")

	execution, err := h.workflowService.CancelWorkflow(c.Request.Context(), workspaceID, executionID, actorID)
	if err != nil {
		h.respondExecutionError(c, logger, err, "Failed to cancel execution")
		return
	}

	logger.Info("Execution cancelled", slog.String("execution_id", execution.ExecutionID))
	c.JSON(http.StatusOK, dto.ToExecutionResponse(execution))
}

// respondExecutionError maps workflow service errors to HTTP statuses.
func (h *workflowHandler) respondExecutionError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Execution or definition not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Execution state rejects the operation", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error on execution operation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
