package domain_test

import (
	"testing"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestExecutionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status domain.ExecutionStatus
		want   bool
	}{
		{name: "running is not terminal", status: domain.ExecutionRunning, want: false},
		{name: "waiting approval is not terminal", status: domain.ExecutionWaitingApproval, want: false},
		{name: "completed is terminal", status: domain.ExecutionCompleted, want: true},
		{name: "failed is terminal", status: domain.ExecutionFailed, want: true},
		{name: "cancelled is terminal", status: domain.ExecutionCancelled, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestExecutionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from domain.ExecutionStatus
		to   domain.ExecutionStatus
		want bool
	}{
		{name: "running to waiting approval", from: domain.ExecutionRunning, to: domain.ExecutionWaitingApproval, want: true},
		{name: "running to completed", from: domain.ExecutionRunning, to: domain.ExecutionCompleted, want: true},
		{name: "running to failed", from: domain.ExecutionRunning, to: domain.ExecutionFailed, want: true},
		{name: "running to cancelled", from: domain.ExecutionRunning, to: domain.ExecutionCancelled, want: true},
		{name: "running stays running across checkpoints", from: domain.ExecutionRunning, to: domain.ExecutionRunning, want: true},
		{name: "waiting approval to running on resume", from: domain.ExecutionWaitingApproval, to: domain.ExecutionRunning, want: true},
		{name: "waiting approval to failed on reject", from: domain.ExecutionWaitingApproval, to: domain.ExecutionFailed, want: true},
		{name: "waiting approval to cancelled", from: domain.ExecutionWaitingApproval, to: domain.ExecutionCancelled, want: true},
		{name: "waiting approval cannot complete directly", from: domain.ExecutionWaitingApproval, to: domain.ExecutionCompleted, want: false},
		{name: "completed admits nothing", from: domain.ExecutionCompleted, to: domain.ExecutionRunning, want: false},
		{name: "failed admits nothing", from: domain.ExecutionFailed, to: domain.ExecutionRunning, want: false},
		{name: "cancelled admits nothing", from: domain.ExecutionCancelled, to: domain.ExecutionFailed, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestWorkflowDefinition_Step(t *testing.T) {
	def := domain.WorkflowDefinition{
		DefinitionID: "invoice-approval",
		StartStepID:  "extract",
		Steps: []domain.WorkflowStep{
			{StepID: "extract", Type: domain.StepAgentExecution, NextStepID: "post"},
			{StepID: "post", Type: domain.StepInvoiceProcessing},
		},
	}

	step, ok := def.Step("post")
	assert.True(t, ok)
	assert.Equal(t, domain.StepInvoiceProcessing, step.Type)

	_, ok = def.Step("missing")
	assert.False(t, ok)
}

func TestApprovalRequest_IsResolved(t *testing.T) {
	tests := []struct {
		name   string
		status domain.ApprovalStatus
		want   bool
	}{
		{name: "pending is unresolved", status: domain.ApprovalPending, want: false},
		{name: "approved is resolved", status: domain.ApprovalApproved, want: true},
		{name: "rejected is resolved", status: domain.ApprovalRejected, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := domain.ApprovalRequest{Status: tt.status}
			assert.Equal(t, tt.want, req.IsResolved())
		})
	}
}
