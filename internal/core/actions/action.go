package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
)

// ErrUnknownStepType signals a definition step whose type has no action.
// The dispatch switch is closed: new step kinds require a new case here.
var ErrUnknownStepType = errors.New("unknown step type")

// ActionRequest carries everything an action needs to run one step of an
// execution.
type ActionRequest struct {
	WorkspaceID string
	ExecutionID string
	StepID      string
	ActorID     string
	// Params are the merged parameters recorded for this step: definition
	// parameters overlaid on the execution input.
	Params map[string]any
}

// ActionResult is the outcome of an action's evaluation phase.
type ActionResult struct {
	Output map[string]any
	// Confidence in [0,1] is what confidence-gated steps are judged on.
	Confidence float64
}

// Action evaluates a step without touching shared state. Side effects are
// deferred to Commit so a confidence gate can pause the execution before
// anything irreversible happens.
type Action interface {
	Execute(ctx context.Context, req ActionRequest) (*ActionResult, error)
}

// Committer is implemented by actions whose step has a durable side effect,
// e.g. a ledger posting. Commit runs only after the step's result cleared
// its gate (or the gate was approved) and may add keys to the step output.
type Committer interface {
	Commit(ctx context.Context, req ActionRequest, result *ActionResult) (map[string]any, error)
}

// Dispatcher resolves definition step types to their actions.
type Dispatcher struct {
	extractor portssvc.DocumentExtractorSvc
	agent     portssvc.AgentRunnerSvc
	ledger    portssvc.LedgerWriterSvc
	accounts  portssvc.AccountReaderSvc
}

// NewDispatcher creates a dispatcher wired to the collaborators the actions
// depend on.
func NewDispatcher(
	extractor portssvc.DocumentExtractorSvc,
	agent portssvc.AgentRunnerSvc,
	ledger portssvc.LedgerWriterSvc,
	accounts portssvc.AccountReaderSvc,
) *Dispatcher {
	return &Dispatcher{
		extractor: extractor,
		agent:     agent,
		ledger:    ledger,
		accounts:  accounts,
	}
}

// ActionFor returns the action implementing the given step type.
func (d *Dispatcher) ActionFor(stepType domain.StepType) (Action, error) {
	switch stepType {
	case domain.StepInvoiceProcessing:
		return &invoiceProcessingAction{
			extractor: d.extractor,
			ledger:    d.ledger,
			accounts:  d.accounts,
		}, nil
	case domain.StepAgentExecution:
		return &agentExecutionAction{agent: d.agent}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
}
