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

// workflowDefinitionHandler exposes the registered workflow definitions.
// Definitions are registered at process start, so these routes are read only.
type workflowDefinitionHandler struct {
	registry portssvc.DefinitionRegistrySvc
}

// newWorkflowDefinitionHandler creates a new workflowDefinitionHandler.
func newWorkflowDefinitionHandler(registry portssvc.DefinitionRegistrySvc) *workflowDefinitionHandler {
	return &workflowDefinitionHandler{
		registry: registry,
	}
}

// registerWorkflowDefinitionRoutes registers the definition catalogue routes.
func registerWorkflowDefinitionRoutes(rg *gin.RouterGroup, registry portssvc.DefinitionRegistrySvc) {
	h := newWorkflowDefinitionHandler(registry)

	definitions := rg.Group("/workflow-definitions")
	{
		definitions.GET("", h.listDefinitions)
		definitions.GET("/:definition_id", h.getDefinition)
	}
}

// listDefinitions godoc
// @Summary List registered workflow definitions
// @Description Retrieves every workflow definition registered at process start, sorted by id.
// @Tags workflow-definitions
// @Produce  json
// @Success 200 {object} dto.ListWorkflowDefinitionsResponse
// @Router /workflow-definitions [get]
func (h *workflowDefinitionHandler) listDefinitions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	definitions := h.registry.ListDefinitions()

	logger.Info("Workflow definitions listed", slog.Int("count", len(definitions)))
	c.JSON(http.StatusOK, dto.ToListWorkflowDefinitionsResponse(definitions))
}

// getDefinition godoc
// @Summary Get a workflow definition by ID
// @Description Retrieves a registered workflow definition with its step graph.
// @Tags workflow-definitions
// @Produce  json
// @Param   definition_id path string true "Workflow definition ID"
// @Success 200 {object} dto.WorkflowDefinitionResponse
// @Failure 404 {object} map[string]string "Definition not found"
// @Router /workflow-definitions/{definition_id} [get]
func (h *workflowDefinitionHandler) getDefinition(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	definitionID := c.Param("definition_id")

	logger = logger.With(slog.String("definition_id", definitionID))

	definition, err := h.registry.GetDefinition(definitionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Workflow definition not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workflow definition not found"})
		} else {
			logger.Error("Failed to get workflow definition", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve workflow definition"})
		}
		return
	}

	logger.Info("Workflow definition retrieved")
	c.JSON(http.StatusOK, dto.ToWorkflowDefinitionResponse(definition))
}
