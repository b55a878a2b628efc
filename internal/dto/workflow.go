package dto

import (
	"time"

	"github.com/opsarc/paperflow/internal/core/domain"
)

// ExecuteWorkflowRequest defines the payload for starting a workflow execution.
type ExecuteWorkflowRequest struct {
	// Input is handed to the first step and stays readable by every later
	// step via the execution context.
	Input map[string]any `json:"input"`
}

// ResumeWorkflowRequest defines the payload for resuming a paused execution.
type ResumeWorkflowRequest struct {
	// StepID optionally names the paused step. When empty, the execution's
	// recorded current step is resumed.
	StepID string `json:"stepID"`
}

// ExecutionResponse defines the data returned for a workflow execution.
type ExecutionResponse struct {
	ExecutionID   string                    `json:"executionID"`
	WorkspaceID   string                    `json:"workspaceID"`
	DefinitionID  string                    `json:"definitionID"`
	Status        domain.ExecutionStatus    `json:"status"`
	CurrentStepID *string                   `json:"currentStepID,omitempty"`
	Input         map[string]any            `json:"input,omitempty"`
	StepOutputs   map[string]map[string]any `json:"stepOutputs,omitempty"`
	StepParams    map[string]map[string]any `json:"stepParams,omitempty"`
	Error         *string                   `json:"error,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
	CreatedBy     string                    `json:"createdBy"`
	LastUpdatedAt time.Time                 `json:"lastUpdatedAt"`
}

// ToExecutionResponse converts a domain.WorkflowExecution to its DTO.
func ToExecutionResponse(e *domain.WorkflowExecution) ExecutionResponse {
	return ExecutionResponse{
		ExecutionID:   e.ExecutionID,
		WorkspaceID:   e.WorkspaceID,
		DefinitionID:  e.DefinitionID,
		Status:        e.Status,
		CurrentStepID: e.CurrentStepID,
		Input:         e.Input,
		StepOutputs:   e.StepOutputs,
		StepParams:    e.StepParams,
		Error:         e.Error,
		CreatedAt:     e.CreatedAt,
		CreatedBy:     e.CreatedBy,
		LastUpdatedAt: e.LastUpdatedAt,
	}
}

// ListExecutionsParams defines query parameters for listing executions.
type ListExecutionsParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// ListExecutionsResponse wraps a page of executions.
type ListExecutionsResponse struct {
	Executions []ExecutionResponse `json:"executions"`
	NextToken  *string             `json:"nextToken,omitempty"`
}

// ToListExecutionsResponse converts a page of domain executions to its DTO.
func ToListExecutionsResponse(executions []domain.WorkflowExecution, nextToken *string) ListExecutionsResponse {
	list := make([]ExecutionResponse, len(executions))
	for i := range executions {
		list[i] = ToExecutionResponse(&executions[i])
	}
	return ListExecutionsResponse{Executions: list, NextToken: nextToken}
}

// WorkflowStepResponse defines the data returned for one step of a definition.
type WorkflowStepResponse struct {
	StepID              string          `json:"stepID"`
	Name                string          `json:"name"`
	Type                domain.StepType `json:"type"`
	Parameters          map[string]any  `json:"parameters,omitempty"`
	ConfidenceThreshold *float64        `json:"confidenceThreshold,omitempty"`
	NextStepID          string          `json:"nextStepID,omitempty"`
}

// WorkflowDefinitionResponse defines the data returned for a workflow definition.
type WorkflowDefinitionResponse struct {
	DefinitionID string                 `json:"definitionID"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	StartStepID  string                 `json:"startStepID"`
	Steps        []WorkflowStepResponse `json:"steps"`
}

// ToWorkflowDefinitionResponse converts a domain.WorkflowDefinition to its DTO.
func ToWorkflowDefinitionResponse(d *domain.WorkflowDefinition) WorkflowDefinitionResponse {
	steps := make([]WorkflowStepResponse, len(d.Steps))
	for i, step := range d.Steps {
		steps[i] = WorkflowStepResponse{
			StepID:              step.StepID,
			Name:                step.Name,
			Type:                step.Type,
			Parameters:          step.Parameters,
			ConfidenceThreshold: step.ConfidenceThreshold,
			NextStepID:          step.NextStepID,
		}
	}
	return WorkflowDefinitionResponse{
		DefinitionID: d.DefinitionID,
		Name:         d.Name,
		Description:  d.Description,
		StartStepID:  d.StartStepID,
		Steps:        steps,
	}
}

// ListWorkflowDefinitionsResponse wraps the registered workflow definitions.
type ListWorkflowDefinitionsResponse struct {
	Definitions []WorkflowDefinitionResponse `json:"definitions"`
}

// ToListWorkflowDefinitionsResponse converts registered definitions to DTOs.
func ToListWorkflowDefinitionsResponse(defs []domain.WorkflowDefinition) ListWorkflowDefinitionsResponse {
	list := make([]WorkflowDefinitionResponse, len(defs))
	for i := range defs {
		list[i] = ToWorkflowDefinitionResponse(&defs[i])
	}
	return ListWorkflowDefinitionsResponse{Definitions: list}
}
