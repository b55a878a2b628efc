package domain

// ExecutionStatus tracks the lifecycle of a workflow execution.
type ExecutionStatus string

const (
	ExecutionRunning         ExecutionStatus = "RUNNING"
	ExecutionWaitingApproval ExecutionStatus = "WAITING_APPROVAL"
	ExecutionCompleted       ExecutionStatus = "COMPLETED"
	ExecutionFailed          ExecutionStatus = "FAILED"
	ExecutionCancelled       ExecutionStatus = "CANCELLED"
)

// validExecutionTransitions encodes the execution state machine. Terminal
// statuses have no outgoing edges.
var validExecutionTransitions = map[ExecutionStatus]map[ExecutionStatus]bool{
	ExecutionRunning: {
		ExecutionRunning:         true,
		ExecutionWaitingApproval: true,
		ExecutionCompleted:       true,
		ExecutionFailed:          true,
		ExecutionCancelled:       true,
	},
	ExecutionWaitingApproval: {
		ExecutionRunning:   true,
		ExecutionFailed:    true,
		ExecutionCancelled: true,
	},
}

// IsTerminal reports whether the status admits no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to
// target.
func (s ExecutionStatus) CanTransitionTo(target ExecutionStatus) bool {
	return validExecutionTransitions[s][target]
}

// WorkflowExecution is the durable context of one workflow run. It is
// checkpointed at every step boundary, so a crashed or paused execution can
// be resumed from its last persisted state. Writes are serialized through
// the Version column: every update is a compare-and-swap on it.
type WorkflowExecution struct {
	ExecutionID  string          `json:"executionID"`  // Primary Key (UUID)
	WorkspaceID  string          `json:"workspaceID"`  // FK -> workspaces.workspace_id (Not Null)
	DefinitionID string          `json:"definitionID"` // Registry id of the definition being run
	Status       ExecutionStatus `json:"status"`
	// CurrentStepID points at the step to run next (RUNNING) or the step
	// awaiting approval (WAITING_APPROVAL). Nil once the execution ends.
	CurrentStepID *string `json:"currentStepID,omitempty"`
	// Input is the caller-supplied payload, persisted before the first
	// step runs.
	Input map[string]any `json:"input,omitempty"`
	// StepOutputs accumulates each completed step's output, keyed by step id.
	StepOutputs map[string]map[string]any `json:"stepOutputs,omitempty"`
	// StepParams records the merged parameters each step ran with, keyed by
	// step id. A resumed step re-executes with exactly these.
	StepParams map[string]map[string]any `json:"stepParams,omitempty"`
	// Error holds the recorded failure for FAILED executions.
	Error   *string `json:"error,omitempty"`
	Version int64   `json:"version"`
	AuditFields
}

// CurrentStep returns the current step id or "" when unset.
func (e *WorkflowExecution) CurrentStep() string {
	if e.CurrentStepID == nil {
		return ""
	}
	return *e.CurrentStepID
}
