package domain

// StepType enumerates the kinds of work a workflow step can perform. The set
// is closed: the engine dispatches with an exhaustive switch, so adding a
// kind means adding a case, not registering a string.
type StepType string

const (
	StepInvoiceProcessing StepType = "INVOICE_PROCESSING"
	StepAgentExecution    StepType = "AGENT_EXECUTION"
)

// KnownStepTypes lists every dispatchable StepType.
func KnownStepTypes() []StepType {
	return []StepType{StepInvoiceProcessing, StepAgentExecution}
}

// WorkflowStep is one node in a workflow definition. Steps form a linear
// chain through NextStepID; an empty NextStepID ends the workflow.
type WorkflowStep struct {
	StepID string   `json:"stepID"`
	Name   string   `json:"name"`
	Type   StepType `json:"type"`
	// Parameters are merged over the execution input when the step runs;
	// step parameters win on conflict.
	Parameters map[string]any `json:"parameters,omitempty"`
	// ConfidenceThreshold gates the step's result when set. A reported
	// confidence below the threshold pauses the execution for human
	// approval instead of committing side effects. Must lie in [0,1].
	ConfidenceThreshold *float64 `json:"confidenceThreshold,omitempty"`
	NextStepID          string   `json:"nextStepID,omitempty"`
}

// WorkflowDefinition is a declarative, immutable description of a workflow.
// Definitions live in an in-memory registry populated at process start.
type WorkflowDefinition struct {
	DefinitionID string         `json:"definitionID"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	StartStepID  string         `json:"startStepID"`
	Steps        []WorkflowStep `json:"steps"`
}

// Step returns the step with the given id, if present.
func (d *WorkflowDefinition) Step(stepID string) (*WorkflowStep, bool) {
	for i := range d.Steps {
		if d.Steps[i].StepID == stepID {
			return &d.Steps[i], true
		}
	}
	return nil, false
}
