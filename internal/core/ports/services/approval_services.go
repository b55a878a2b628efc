package services

import (
	"context"

	"github.com/opsarc/paperflow/internal/core/domain"
)

// ApprovalReaderSvc defines read operations for approval requests
type ApprovalReaderSvc interface {
	// GetApprovalRequestByID retrieves a specific approval request.
	GetApprovalRequestByID(ctx context.Context, workspaceID string, approvalRequestID string) (*domain.ApprovalRequest, error)

	// ListApprovals retrieves approval requests for a workspace, optionally
	// filtered by status, newest first.
	ListApprovals(ctx context.Context, workspaceID string, status *domain.ApprovalStatus, limit int, offset int) ([]domain.ApprovalRequest, error)
}

// ApprovalWriterSvc defines the resolution lifecycle of approval requests
type ApprovalWriterSvc interface {
	// RequestIntervention creates a PENDING approval request for a paused
	// step. Called by the workflow engine when a confidence gate trips; a
	// persistence failure is returned loudly since a lost request would
	// strand the paused execution.
	RequestIntervention(ctx context.Context, workspaceID string, executionID string, stepID string, reason string, params map[string]any, actorID string) (*domain.ApprovalRequest, error)

	// Approve resolves a PENDING request as APPROVED. It does not resume the
	// paused execution; callers follow up with ResumeWorkflow.
	Approve(ctx context.Context, workspaceID string, approvalRequestID string, approverID string) (*domain.ApprovalRequest, error)

	// Reject resolves a PENDING request as REJECTED and moves the paired
	// execution from WAITING_APPROVAL to FAILED.
	Reject(ctx context.Context, workspaceID string, approvalRequestID string, approverID string, reason string) (*domain.ApprovalRequest, error)
}

// ApprovalSvcFacade combines all approval-related service interfaces
// This is a facade for clients that need access to all operations
type ApprovalSvcFacade interface {
	ApprovalReaderSvc
	ApprovalWriterSvc
}
