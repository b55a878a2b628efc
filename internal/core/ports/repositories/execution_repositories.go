package repositories

import (
	"context"

	"github.com/opsarc/paperflow/internal/core/domain"
)

// ExecutionReader defines read operations for workflow executions
type ExecutionReader interface {
	// FindExecutionByID retrieves a specific execution by its unique identifier.
	FindExecutionByID(ctx context.Context, executionID string) (*domain.WorkflowExecution, error)

	// ListExecutionsByWorkspace retrieves a paginated list of executions for a given workspace using token-based pagination.
	ListExecutionsByWorkspace(ctx context.Context, workspaceID string, limit int, nextToken *string) ([]domain.WorkflowExecution, *string, error)
}

// ExecutionWriter defines write operations for workflow executions
type ExecutionWriter interface {
	// SaveExecution persists a new execution with its initial context.
	SaveExecution(ctx context.Context, execution domain.WorkflowExecution) error

	// UpdateExecution persists the execution's current state using an
	// optimistic version check. The stored row is updated only when its
	// version still equals expectedVersion; otherwise no row is touched and
	// a conflict error is returned, so concurrent writers cannot interleave
	// checkpoints for the same execution.
	UpdateExecution(ctx context.Context, execution domain.WorkflowExecution, expectedVersion int64) error
}

// ExecutionRepositoryFacade combines all execution-related repository interfaces
type ExecutionRepositoryFacade interface {
	ExecutionReader
	ExecutionWriter
}
