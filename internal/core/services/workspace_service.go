package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/dto"
)

// workspaceService implements the WorkspaceSvcFacade interface
type workspaceService struct {
	BaseService
	workspaceRepo portsrepo.WorkspaceRepositoryFacade
	// accountSvc seeds the default chart of accounts for new workspaces. It
	// is attached by the service container after both services exist, since
	// the account service itself authorizes against this one.
	accountSvc portssvc.AccountWriterSvc
}

// WorkspaceServiceOption configures optional dependencies of the workspace service
type WorkspaceServiceOption func(*workspaceService)

// WithDefaultAccountSeeder sets the account service used to seed the default
// chart of accounts into newly created workspaces.
func WithDefaultAccountSeeder(accountSvc portssvc.AccountWriterSvc) WorkspaceServiceOption {
	return func(s *workspaceService) {
		s.accountSvc = accountSvc
	}
}

// NewWorkspaceService creates a new workspace service with the provided dependencies
func NewWorkspaceService(workspaceRepo portsrepo.WorkspaceRepositoryFacade, options ...WorkspaceServiceOption) portssvc.WorkspaceSvcFacade {
	svc := &workspaceService{
		workspaceRepo: workspaceRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure workspaceService implements the WorkspaceSvcFacade interface
var _ portssvc.WorkspaceSvcFacade = (*workspaceService)(nil)

// CreateWorkspace provisions a new workspace and, unless the request opts
// out, seeds its default chart of accounts.
func (s *workspaceService) CreateWorkspace(ctx context.Context, req dto.CreateWorkspaceRequest, creatorID string) (*domain.Workspace, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: workspace name is required", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	workspace := domain.Workspace{
		WorkspaceID: uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		Version:     1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorID,
		},
	}

	if err := s.workspaceRepo.SaveWorkspace(ctx, workspace); err != nil {
		s.LogError(ctx, err, "Failed to save workspace",
			slog.String("workspace_id", workspace.WorkspaceID))
		return nil, err
	}

	if !req.SkipDefaultAccounts && s.accountSvc != nil {
		if _, err := s.accountSvc.CreateDefaultAccounts(ctx, workspace.WorkspaceID, creatorID); err != nil {
			s.LogError(ctx, err, "Failed to seed default accounts for new workspace",
				slog.String("workspace_id", workspace.WorkspaceID))
			return nil, fmt.Errorf("workspace %s created but seeding default accounts failed: %w", workspace.WorkspaceID, err)
		}
	}

	s.LogInfo(ctx, "Workspace created successfully",
		slog.String("workspace_id", workspace.WorkspaceID),
		slog.Bool("default_accounts", !req.SkipDefaultAccounts))
	return &workspace, nil
}

// GetWorkspaceByID retrieves a workspace by its ID
func (s *workspaceService) GetWorkspaceByID(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	workspace, err := s.workspaceRepo.FindWorkspaceByID(ctx, workspaceID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find workspace by ID",
				slog.String("workspace_id", workspaceID))
		}
		return nil, err
	}

	s.LogDebug(ctx, "Workspace retrieved successfully",
		slog.String("workspace_id", workspace.WorkspaceID))
	return workspace, nil
}

// ListWorkspaces retrieves a paginated list of workspaces
func (s *workspaceService) ListWorkspaces(ctx context.Context, limit int, offset int) ([]domain.Workspace, error) {
	workspaces, err := s.workspaceRepo.ListWorkspaces(ctx, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list workspaces",
			slog.Int("limit", limit),
			slog.Int("offset", offset))
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	if workspaces == nil {
		return []domain.Workspace{}, nil
	}
	return workspaces, nil
}

// DeactivateWorkspace marks a workspace as inactive. Writes into the
// workspace are rejected from then on; reads keep working.
func (s *workspaceService) DeactivateWorkspace(ctx context.Context, workspaceID string, requestingActorID string) error {
	workspace, err := s.GetWorkspaceByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !workspace.IsActive {
		return fmt.Errorf("%w: workspace %s is already inactive", apperrors.ErrValidation, workspaceID)
	}

	err = s.workspaceRepo.UpdateWorkspaceStatus(ctx, workspaceID, false, requestingActorID, workspace.Version)
	if err != nil {
		s.LogError(ctx, err, "Failed to deactivate workspace",
			slog.String("workspace_id", workspaceID))
		return err
	}

	s.LogInfo(ctx, "Workspace deactivated successfully",
		slog.String("workspace_id", workspaceID))
	return nil
}

// EnsureWorkspaceExists returns ErrNotFound when the workspace is unknown.
func (s *workspaceService) EnsureWorkspaceExists(ctx context.Context, workspaceID string) error {
	_, err := s.workspaceRepo.FindWorkspaceByID(ctx, workspaceID)
	return err
}

// EnsureWorkspaceActive checks the workspace exists and still accepts writes.
func (s *workspaceService) EnsureWorkspaceActive(ctx context.Context, workspaceID string) error {
	workspace, err := s.workspaceRepo.FindWorkspaceByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !workspace.IsActive {
		return fmt.Errorf("%w: workspace %s is inactive", apperrors.ErrValidation, workspaceID)
	}
	return nil
}
