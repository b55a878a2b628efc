package dto

import (
	"time"

	"github.com/opsarc/paperflow/internal/core/domain"
)

// ApproveRequest defines the payload for approving an approval request.
type ApproveRequest struct {
	// ApproverID overrides the actor header when set.
	ApproverID string `json:"approverID"`
}

// RejectRequest defines the payload for rejecting an approval request.
type RejectRequest struct {
	ApproverID string `json:"approverID"`
	Reason     string `json:"reason" binding:"required"`
}

// ApprovalRequestResponse defines the data returned for an approval request.
type ApprovalRequestResponse struct {
	ApprovalRequestID string                `json:"approvalRequestID"`
	WorkspaceID       string                `json:"workspaceID"`
	ExecutionID       string                `json:"executionID"`
	StepID            string                `json:"stepID"`
	Reason            string                `json:"reason"`
	Params            map[string]any        `json:"params,omitempty"`
	Status            domain.ApprovalStatus `json:"status"`
	RequestedAt       time.Time             `json:"requestedAt"`
	ReviewerID        *string               `json:"reviewerID,omitempty"`
	ReviewedAt        *time.Time            `json:"reviewedAt,omitempty"`
	DecisionReason    *string               `json:"decisionReason,omitempty"`
}

// ToApprovalRequestResponse converts a domain.ApprovalRequest to its DTO.
func ToApprovalRequestResponse(r *domain.ApprovalRequest) ApprovalRequestResponse {
	return ApprovalRequestResponse{
		ApprovalRequestID: r.ApprovalRequestID,
		WorkspaceID:       r.WorkspaceID,
		ExecutionID:       r.ExecutionID,
		StepID:            r.StepID,
		Reason:            r.Reason,
		Params:            r.Params,
		Status:            r.Status,
		RequestedAt:       r.RequestedAt,
		ReviewerID:        r.ReviewerID,
		ReviewedAt:        r.ReviewedAt,
		DecisionReason:    r.DecisionReason,
	}
}

// ListApprovalsParams defines query parameters for listing approval requests.
type ListApprovalsParams struct {
	// Status filters by lifecycle state when set: PENDING, APPROVED or REJECTED.
	Status *domain.ApprovalStatus `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Limit  int                    `form:"limit,default=20"`
	Offset int                    `form:"offset,default=0"`
}

// ListApprovalsResponse wraps a list of approval requests.
type ListApprovalsResponse struct {
	Approvals []ApprovalRequestResponse `json:"approvals"`
}

// ToListApprovalsResponse converts a slice of domain approval requests to DTOs.
func ToListApprovalsResponse(requests []domain.ApprovalRequest) ListApprovalsResponse {
	list := make([]ApprovalRequestResponse, len(requests))
	for i := range requests {
		list[i] = ToApprovalRequestResponse(&requests[i])
	}
	return ListApprovalsResponse{Approvals: list}
}
