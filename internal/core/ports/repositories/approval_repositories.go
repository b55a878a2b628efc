package repositories

import (
	"context"
	"time"

	"github.com/opsarc/paperflow/internal/core/domain"
)

// ApprovalReader defines read operations for approval requests
type ApprovalReader interface {
	// FindApprovalRequestByID retrieves a specific approval request by its unique identifier.
	FindApprovalRequestByID(ctx context.Context, approvalRequestID string) (*domain.ApprovalRequest, error)

	// FindApprovalByExecutionAndStep retrieves the most recent approval
	// request raised for a given execution and step.
	FindApprovalByExecutionAndStep(ctx context.Context, executionID string, stepID string) (*domain.ApprovalRequest, error)

	// ListApprovalsByWorkspace retrieves approval requests for a workspace,
	// optionally filtered by status, newest first.
	ListApprovalsByWorkspace(ctx context.Context, workspaceID string, status *domain.ApprovalStatus, limit int, offset int) ([]domain.ApprovalRequest, error)
}

// ApprovalWriter defines write operations for approval requests
type ApprovalWriter interface {
	// SaveApprovalRequest persists a new pending approval request.
	SaveApprovalRequest(ctx context.Context, request domain.ApprovalRequest) error

	// ResolveApprovalRequest moves a request out of PENDING exactly once.
	// The update is conditional on the stored status still being PENDING;
	// when no row matches, a conflict error is returned so double
	// resolutions surface instead of silently overwriting the first.
	ResolveApprovalRequest(ctx context.Context, approvalRequestID string, status domain.ApprovalStatus, reviewerID string, decisionReason *string, now time.Time) error
}

// ApprovalRepositoryFacade combines all approval-related repository interfaces
type ApprovalRepositoryFacade interface {
	ApprovalReader
	ApprovalWriter
}
