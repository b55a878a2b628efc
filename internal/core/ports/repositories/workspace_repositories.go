package repositories

import (
	"context"

	"github.com/opsarc/paperflow/internal/core/domain"
)

// WorkspaceReader defines read operations for workspace data
type WorkspaceReader interface {
	// FindWorkspaceByID retrieves a specific workspace by its ID.
	FindWorkspaceByID(ctx context.Context, workspaceID string) (*domain.Workspace, error)

	// ListWorkspaces retrieves a paginated list of workspaces.
	ListWorkspaces(ctx context.Context, limit int, offset int) ([]domain.Workspace, error)
}

// WorkspaceWriter defines write operations for workspace data
type WorkspaceWriter interface {
	// SaveWorkspace persists a new workspace.
	SaveWorkspace(ctx context.Context, workspace domain.Workspace) error

	// UpdateWorkspaceStatus flips the active flag using an optimistic version check.
	UpdateWorkspaceStatus(ctx context.Context, workspaceID string, isActive bool, updatedByUserID string, version int64) error
}

// WorkspaceRepositoryFacade combines all workspace-related repository interfaces
// This is a facade for clients that need access to all operations
type WorkspaceRepositoryFacade interface {
	WorkspaceReader
	WorkspaceWriter
}

// WorkspaceRepositoryWithTx extends WorkspaceRepositoryFacade with transaction capabilities
type WorkspaceRepositoryWithTx interface {
	WorkspaceRepositoryFacade
	TransactionManager
}
