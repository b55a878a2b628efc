package services

import (
	"context"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/opsarc/paperflow/internal/dto"
)

// DefinitionRegistrySvc is the in-memory catalogue of workflow definitions.
// Definitions are registered at process start and are immutable afterwards.
type DefinitionRegistrySvc interface {
	// Register validates and stores a definition. Registration fails on
	// duplicate ids, unresolvable step links, unknown step types or
	// thresholds outside [0,1].
	Register(definition domain.WorkflowDefinition) error

	// GetDefinition retrieves a registered definition by id.
	GetDefinition(definitionID string) (*domain.WorkflowDefinition, error)

	// ListDefinitions returns every registered definition.
	ListDefinitions() []domain.WorkflowDefinition
}

// WorkflowRunnerSvc drives workflow executions through their step loop
type WorkflowRunnerSvc interface {
	// ExecuteWorkflow starts a new execution and runs it until it completes,
	// pauses for approval, fails or is cancelled. The returned context must
	// be inspected for its status; a nil error does not imply success.
	ExecuteWorkflow(ctx context.Context, workspaceID string, definitionID string, input map[string]any, actorID string) (*domain.WorkflowExecution, error)

	// ResumeWorkflow re-enters a paused execution at the given step with the
	// parameters recorded when it paused. The step's approval request must
	// be APPROVED.
	ResumeWorkflow(ctx context.Context, workspaceID string, executionID string, stepID string, actorID string) (*domain.WorkflowExecution, error)

	// CancelWorkflow moves a RUNNING or WAITING_APPROVAL execution to
	// CANCELLED. Cancellation takes effect at step boundaries.
	CancelWorkflow(ctx context.Context, workspaceID string, executionID string, actorID string) (*domain.WorkflowExecution, error)
}

// WorkflowReaderSvc defines read operations for workflow executions
type WorkflowReaderSvc interface {
	// GetExecutionByID retrieves a specific execution.
	GetExecutionByID(ctx context.Context, workspaceID string, executionID string) (*domain.WorkflowExecution, error)

	// ListExecutions retrieves a paginated list of executions in a workspace.
	ListExecutions(ctx context.Context, workspaceID string, params dto.ListExecutionsParams) (*dto.ListExecutionsResponse, error)
}

// WorkflowSvcFacade combines all workflow-related service interfaces
// This is a facade for clients that need access to all operations
type WorkflowSvcFacade interface {
	WorkflowRunnerSvc
	WorkflowReaderSvc
}
