package services

import (
	"context"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/opsarc/paperflow/internal/dto"
)

// WorkspaceReaderSvc defines read operations for workspace data
type WorkspaceReaderSvc interface {
	// GetWorkspaceByID retrieves a specific workspace by its ID.
	GetWorkspaceByID(ctx context.Context, workspaceID string) (*domain.Workspace, error)

	// ListWorkspaces retrieves a paginated list of workspaces.
	ListWorkspaces(ctx context.Context, limit int, offset int) ([]domain.Workspace, error)
}

// WorkspaceWriterSvc defines write operations for workspace data
type WorkspaceWriterSvc interface {
	// CreateWorkspace provisions a new workspace together with its default
	// chart of accounts.
	CreateWorkspace(ctx context.Context, req dto.CreateWorkspaceRequest, creatorID string) (*domain.Workspace, error)

	// DeactivateWorkspace marks a workspace as inactive.
	DeactivateWorkspace(ctx context.Context, workspaceID string, requestingActorID string) error
}

// WorkspaceAuthorizerSvc gates operations on workspace existence and state.
// Writes require an active workspace; reads only require existence.
type WorkspaceAuthorizerSvc interface {
	// EnsureWorkspaceExists returns ErrNotFound when the workspace is unknown.
	EnsureWorkspaceExists(ctx context.Context, workspaceID string) error

	// EnsureWorkspaceActive returns ErrNotFound for unknown workspaces and a
	// validation error for deactivated ones.
	EnsureWorkspaceActive(ctx context.Context, workspaceID string) error
}

// WorkspaceSvcFacade combines all workspace-related service interfaces
// This is a facade for clients that need access to all operations
type WorkspaceSvcFacade interface {
	WorkspaceReaderSvc
	WorkspaceWriterSvc
	WorkspaceAuthorizerSvc
}
