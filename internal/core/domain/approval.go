package domain

import "time"

// ApprovalStatus tracks the lifecycle of an approval request. A request is
// resolved exactly once: PENDING moves to APPROVED or REJECTED and stays
// there.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ApprovalRequest asks a human to vouch for a low-confidence step result.
// The paired execution sits in WAITING_APPROVAL until the request is
// resolved or the execution is cancelled.
type ApprovalRequest struct {
	ApprovalRequestID string `json:"approvalRequestID"` // Primary Key (UUID)
	WorkspaceID       string `json:"workspaceID"`       // FK -> workspaces.workspace_id (Not Null)
	ExecutionID       string `json:"executionID"`       // FK -> workflow_executions.execution_id (Not Null)
	StepID            string `json:"stepID"`            // Step the execution paused on
	// Reason explains why intervention is needed, e.g. the reported
	// confidence versus the step threshold.
	Reason string `json:"reason"`
	// Params snapshots the merged parameters the gated step ran with, so
	// reviewers see what a resume will re-execute.
	Params         map[string]any `json:"params,omitempty"`
	Status         ApprovalStatus `json:"status"`
	RequestedAt    time.Time      `json:"requestedAt"`
	ReviewerID     *string        `json:"reviewerID,omitempty"`
	ReviewedAt     *time.Time     `json:"reviewedAt,omitempty"`
	DecisionReason *string        `json:"decisionReason,omitempty"`
	AuditFields
}

// IsResolved reports whether the request has left PENDING.
func (r *ApprovalRequest) IsResolved() bool {
	return r.Status != ApprovalPending
}
