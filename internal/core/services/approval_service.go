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
)

// ErrApprovalAlreadyResolved rejects a second resolution of the same
// approval request. The first decision stands.
var ErrApprovalAlreadyResolved = errors.New("approval request is already resolved")

// approvalService manages the human intervention lifecycle of paused
// workflow executions.
type approvalService struct {
	BaseService
	approvalRepo  portsrepo.ApprovalRepositoryFacade
	executionRepo portsrepo.ExecutionRepositoryFacade
}

// NewApprovalService creates a new approval service with the provided dependencies
func NewApprovalService(approvalRepo portsrepo.ApprovalRepositoryFacade, executionRepo portsrepo.ExecutionRepositoryFacade, authorizer portssvc.WorkspaceAuthorizerSvc) portssvc.ApprovalSvcFacade {
	svc := &approvalService{
		approvalRepo:  approvalRepo,
		executionRepo: executionRepo,
	}
	svc.WorkspaceAuthorizer = authorizer
	return svc
}

// Ensure approvalService implements the ApprovalSvcFacade interface
var _ portssvc.ApprovalSvcFacade = (*approvalService)(nil)

// RequestIntervention records a PENDING approval request for a paused step.
// The engine calls this right after checkpointing the pause; a failure here
// is returned loudly because a paused execution without a request would
// never surface to reviewers.
func (s *approvalService) RequestIntervention(ctx context.Context, workspaceID string, executionID string, stepID string, reason string, params map[string]any, actorID string) (*domain.ApprovalRequest, error) {
	now := time.Now().UTC()
	request := domain.ApprovalRequest{
		ApprovalRequestID: uuid.NewString(),
		WorkspaceID:       workspaceID,
		ExecutionID:       executionID,
		StepID:            stepID,
		Reason:            reason,
		Params:            params,
		Status:            domain.ApprovalPending,
		RequestedAt:       now,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.approvalRepo.SaveApprovalRequest(ctx, request); err != nil {
		s.LogError(ctx, err, "Failed to save approval request",
			slog.String("execution_id", executionID),
			slog.String("step_id", stepID))
		return nil, err
	}

	s.LogInfo(ctx, "Approval request created",
		slog.String("approval_request_id", request.ApprovalRequestID),
		slog.String("execution_id", executionID),
		slog.String("step_id", stepID))
	return &request, nil
}

// Approve resolves a PENDING request as APPROVED. The paired execution stays
// in WAITING_APPROVAL; resuming it is a separate, explicit call.
func (s *approvalService) Approve(ctx context.Context, workspaceID string, approvalRequestID string, approverID string) (*domain.ApprovalRequest, error) {
	request, err := s.getScopedApproval(ctx, workspaceID, approvalRequestID)
	if err != nil {
		return nil, err
	}
	if request.IsResolved() {
		return nil, fmt.Errorf("%w: approval request %s is %s", ErrApprovalAlreadyResolved, approvalRequestID, request.Status)
	}

	execution, err := s.executionRepo.FindExecutionByID(ctx, request.ExecutionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load execution for approval",
			slog.String("execution_id", request.ExecutionID))
		return nil, err
	}
	if execution.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: execution %s is %s, its approvals can no longer be resolved", ErrInvalidState, execution.ExecutionID, execution.Status)
	}

	now := time.Now().UTC()
	if err := s.approvalRepo.ResolveApprovalRequest(ctx, approvalRequestID, domain.ApprovalApproved, approverID, nil, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Someone else resolved it between our read and this write.
			return nil, fmt.Errorf("%w: approval request %s", ErrApprovalAlreadyResolved, approvalRequestID)
		}
		s.LogError(ctx, err, "Failed to resolve approval request",
			slog.String("approval_request_id", approvalRequestID))
		return nil, err
	}

	request.Status = domain.ApprovalApproved
	request.ReviewerID = &approverID
	request.ReviewedAt = &now
	request.LastUpdatedAt = now
	request.LastUpdatedBy = approverID

	s.LogInfo(ctx, "Approval request approved, execution stays paused until resumed",
		slog.String("approval_request_id", approvalRequestID),
		slog.String("execution_id", request.ExecutionID),
		slog.String("approver_id", approverID))
	return request, nil
}

// Reject resolves a PENDING request as REJECTED and synchronously fails the
// paired execution, recording who rejected it and why.
func (s *approvalService) Reject(ctx context.Context, workspaceID string, approvalRequestID string, approverID string, reason string) (*domain.ApprovalRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", apperrors.ErrValidation)
	}

	request, err := s.getScopedApproval(ctx, workspaceID, approvalRequestID)
	if err != nil {
		return nil, err
	}
	if request.IsResolved() {
		return nil, fmt.Errorf("%w: approval request %s is %s", ErrApprovalAlreadyResolved, approvalRequestID, request.Status)
	}

	execution, err := s.executionRepo.FindExecutionByID(ctx, request.ExecutionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load execution for rejection",
			slog.String("execution_id", request.ExecutionID))
		return nil, err
	}
	if execution.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: execution %s is %s, its approvals can no longer be resolved", ErrInvalidState, execution.ExecutionID, execution.Status)
	}

	now := time.Now().UTC()
	if err := s.approvalRepo.ResolveApprovalRequest(ctx, approvalRequestID, domain.ApprovalRejected, approverID, &reason, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: approval request %s", ErrApprovalAlreadyResolved, approvalRequestID)
		}
		s.LogError(ctx, err, "Failed to resolve approval request",
			slog.String("approval_request_id", approvalRequestID))
		return nil, err
	}

	if err := s.failRejectedExecution(ctx, execution, approverID, reason); err != nil {
		return nil, err
	}

	request.Status = domain.ApprovalRejected
	request.ReviewerID = &approverID
	request.ReviewedAt = &now
	request.DecisionReason = &reason
	request.LastUpdatedAt = now
	request.LastUpdatedBy = approverID

	s.LogInfo(ctx, "Approval request rejected, execution failed",
		slog.String("approval_request_id", approvalRequestID),
		slog.String("execution_id", request.ExecutionID),
		slog.String("approver_id", approverID))
	return request, nil
}

// failRejectedExecution moves the paused execution to FAILED. A concurrent
// writer bumping the version gets one reload and retry; an execution that
// turned terminal in the meantime is left as found.
func (s *approvalService) failRejectedExecution(ctx context.Context, execution *domain.WorkflowExecution, approverID string, reason string) error {
	for attempt := 0; attempt < 2; attempt++ {
		if execution.Status != domain.ExecutionWaitingApproval {
			s.LogInfo(ctx, "Execution already left WAITING_APPROVAL, skipping failure transition",
				slog.String("execution_id", execution.ExecutionID),
				slog.String("status", string(execution.Status)))
			return nil
		}

		message := fmt.Sprintf("step %s rejected by %s: %s", execution.CurrentStep(), approverID, reason)
		now := time.Now().UTC()
		updated := *execution
		updated.Status = domain.ExecutionFailed
		updated.Error = &message
		updated.LastUpdatedAt = now
		updated.LastUpdatedBy = approverID

		err := s.executionRepo.UpdateExecution(ctx, updated, execution.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			s.LogError(ctx, err, "Failed to fail execution after rejection",
				slog.String("execution_id", execution.ExecutionID))
			return err
		}

		reloaded, findErr := s.executionRepo.FindExecutionByID(ctx, execution.ExecutionID)
		if findErr != nil {
			return findErr
		}
		execution = reloaded
	}
	return fmt.Errorf("%w: execution %s kept changing while recording the rejection", ErrInvalidState, execution.ExecutionID)
}

// GetApprovalRequestByID retrieves an approval request scoped to its workspace.
func (s *approvalService) GetApprovalRequestByID(ctx context.Context, workspaceID string, approvalRequestID string) (*domain.ApprovalRequest, error) {
	return s.getScopedApproval(ctx, workspaceID, approvalRequestID)
}

// ListApprovals retrieves approval requests for a workspace, optionally
// filtered by status, newest first.
func (s *approvalService) ListApprovals(ctx context.Context, workspaceID string, status *domain.ApprovalStatus, limit int, offset int) ([]domain.ApprovalRequest, error) {
	requests, err := s.approvalRepo.ListApprovalsByWorkspace(ctx, workspaceID, status, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list approval requests",
			slog.String("workspace_id", workspaceID))
		return nil, fmt.Errorf("failed to retrieve approval requests: %w", err)
	}

	if requests == nil {
		return []domain.ApprovalRequest{}, nil
	}
	return requests, nil
}

func (s *approvalService) getScopedApproval(ctx context.Context, workspaceID string, approvalRequestID string) (*domain.ApprovalRequest, error) {
	request, err := s.approvalRepo.FindApprovalRequestByID(ctx, approvalRequestID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find approval request by ID",
				slog.String("approval_request_id", approvalRequestID))
		}
		return nil, err
	}

	if request.WorkspaceID != workspaceID {
		s.LogDebug(ctx, "Approval request found but belongs to different workspace",
			slog.String("approval_request_id", approvalRequestID),
			slog.String("request_workspace", request.WorkspaceID),
			slog.String("requested_workspace", workspaceID))
		return nil, apperrors.ErrNotFound // Obscure existence
	}
	return request, nil
}
