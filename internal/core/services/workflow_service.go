package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/actions"
	"github.com/opsarc/paperflow/internal/core/domain"
	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/dto"
)

var (
	// ErrInvalidState rejects operations the execution's current status does
	// not admit: resuming a running execution, cancelling a completed one,
	// or losing the optimistic version check to a concurrent writer.
	ErrInvalidState = errors.New("operation not allowed in the execution's current state")

	// ErrExternalAction marks step failures caused by the action or its
	// commit phase rather than by the engine itself.
	ErrExternalAction = errors.New("external action failed")
)

// workflowService drives executions through their definition's step chain,
// checkpointing the full execution context at every step boundary. The loop
// is synchronous: the caller gets back an execution that has either reached
// a terminal status or paused for approval.
type workflowService struct {
	BaseService
	executionRepo portsrepo.ExecutionRepositoryFacade
	approvalRepo  portsrepo.ApprovalReader
	registry      portssvc.DefinitionRegistrySvc
	dispatcher    *actions.Dispatcher
	approvalSvc   portssvc.ApprovalWriterSvc
}

// NewWorkflowService creates the workflow engine with the provided dependencies
func NewWorkflowService(
	executionRepo portsrepo.ExecutionRepositoryFacade,
	approvalRepo portsrepo.ApprovalReader,
	registry portssvc.DefinitionRegistrySvc,
	dispatcher *actions.Dispatcher,
	approvalSvc portssvc.ApprovalWriterSvc,
	authorizer portssvc.WorkspaceAuthorizerSvc,
) portssvc.WorkflowSvcFacade {
	svc := &workflowService{
		executionRepo: executionRepo,
		approvalRepo:  approvalRepo,
		registry:      registry,
		dispatcher:    dispatcher,
		approvalSvc:   approvalSvc,
	}
	svc.WorkspaceAuthorizer = authorizer
	return svc
}

// Ensure workflowService implements the WorkflowSvcFacade interface
var _ portssvc.WorkflowSvcFacade = (*workflowService)(nil)

// ExecuteWorkflow starts a new execution of a registered definition and runs
// its step loop. The returned execution must be inspected for its status; a
// nil error does not imply the run succeeded.
func (s *workflowService) ExecuteWorkflow(ctx context.Context, workspaceID string, definitionID string, input map[string]any, actorID string) (*domain.WorkflowExecution, error) {
	if err := s.EnsureWorkspaceActive(ctx, workspaceID); err != nil {
		return nil, err
	}

	definition, err := s.registry.GetDefinition(definitionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	startStepID := definition.StartStepID
	execution := &domain.WorkflowExecution{
		ExecutionID:   uuid.NewString(),
		WorkspaceID:   workspaceID,
		DefinitionID:  definitionID,
		Status:        domain.ExecutionRunning,
		CurrentStepID: &startStepID,
		Input:         input,
		StepOutputs:   make(map[string]map[string]any),
		StepParams:    make(map[string]map[string]any),
		Version:       1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.executionRepo.SaveExecution(ctx, *execution); err != nil {
		s.LogError(ctx, err, "Failed to save new execution",
			slog.String("execution_id", execution.ExecutionID),
			slog.String("definition_id", definitionID))
		return nil, err
	}

	s.LogInfo(ctx, "Workflow execution started",
		slog.String("execution_id", execution.ExecutionID),
		slog.String("definition_id", definitionID),
		slog.String("workspace_id", workspaceID))

	return s.runLoop(ctx, execution, definition, actorID, "")
}

// ResumeWorkflow re-enters a paused execution at the step it paused on,
// re-running the step with the exact parameters recorded when it paused. The
// step's approval request must already be APPROVED; the confidence gate is
// bypassed for that one step instance.
func (s *workflowService) ResumeWorkflow(ctx context.Context, workspaceID string, executionID string, stepID string, actorID string) (*domain.WorkflowExecution, error) {
	execution, err := s.getScopedExecution(ctx, workspaceID, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: execution %s is %s", ErrInvalidState, executionID, execution.Status)
	}
	if execution.Status != domain.ExecutionWaitingApproval {
		return nil, fmt.Errorf("%w: execution %s is not waiting for approval", ErrInvalidState, executionID)
	}

	pausedStepID := execution.CurrentStep()
	if stepID == "" {
		stepID = pausedStepID
	}
	if stepID != pausedStepID {
		return nil, fmt.Errorf("%w: execution %s is paused on step %s, not %s", ErrInvalidState, executionID, pausedStepID, stepID)
	}

	approval, err := s.approvalRepo.FindApprovalByExecutionAndStep(ctx, executionID, stepID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no approval request recorded for execution %s step %s", ErrInvalidState, executionID, stepID)
		}
		s.LogError(ctx, err, "Failed to load approval request for resume",
			slog.String("execution_id", executionID),
			slog.String("step_id", stepID))
		return nil, err
	}
	if approval.Status != domain.ApprovalApproved {
		return nil, fmt.Errorf("%w: approval request %s is %s, not APPROVED", ErrInvalidState, approval.ApprovalRequestID, approval.Status)
	}

	definition, err := s.registry.GetDefinition(execution.DefinitionID)
	if err != nil {
		return nil, err
	}

	execution.Status = domain.ExecutionRunning
	if err := s.checkpoint(ctx, execution, actorID); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Workflow execution resumed",
		slog.String("execution_id", executionID),
		slog.String("step_id", stepID),
		slog.String("approved_by", stringOrEmpty(approval.ReviewerID)))

	return s.runLoop(ctx, execution, definition, actorID, stepID)
}

// CancelWorkflow moves a live execution to CANCELLED. A step that is mid
// flight in another writer keeps running until its next checkpoint, where
// its stale version loses the optimistic check and the loop stops.
func (s *workflowService) CancelWorkflow(ctx context.Context, workspaceID string, executionID string, actorID string) (*domain.WorkflowExecution, error) {
	execution, err := s.getScopedExecution(ctx, workspaceID, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: execution %s is already %s", ErrInvalidState, executionID, execution.Status)
	}

	execution.Status = domain.ExecutionCancelled
	if err := s.checkpoint(ctx, execution, actorID); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Workflow execution cancelled",
		slog.String("execution_id", executionID),
		slog.String("workspace_id", workspaceID))
	return execution, nil
}

// GetExecutionByID retrieves an execution scoped to its workspace.
func (s *workflowService) GetExecutionByID(ctx context.Context, workspaceID string, executionID string) (*domain.WorkflowExecution, error) {
	return s.getScopedExecution(ctx, workspaceID, executionID)
}

// ListExecutions retrieves a page of executions for a workspace.
func (s *workflowService) ListExecutions(ctx context.Context, workspaceID string, params dto.ListExecutionsParams) (*dto.ListExecutionsResponse, error) {
	executions, nextToken, err := s.executionRepo.ListExecutionsByWorkspace(ctx, workspaceID, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list executions",
			slog.String("workspace_id", workspaceID))
		return nil, fmt.Errorf("failed to retrieve executions: %w", err)
	}

	resp := dto.ToListExecutionsResponse(executions, nextToken)
	return &resp, nil
}

// runLoop advances the execution step by step until it completes, fails,
// pauses for approval or is cancelled. approvedStepID names the one step
// whose confidence gate was already approved and must not trip again.
func (s *workflowService) runLoop(ctx context.Context, execution *domain.WorkflowExecution, definition *domain.WorkflowDefinition, actorID string, approvedStepID string) (*domain.WorkflowExecution, error) {
	if execution.StepOutputs == nil {
		execution.StepOutputs = make(map[string]map[string]any)
	}
	if execution.StepParams == nil {
		execution.StepParams = make(map[string]map[string]any)
	}

	for execution.Status == domain.ExecutionRunning {
		stepID := execution.CurrentStep()
		if stepID == "" {
			return s.failExecution(ctx, execution, fmt.Errorf("running execution %s has no current step", execution.ExecutionID), actorID)
		}
		step, ok := definition.Step(stepID)
		if !ok {
			return s.failExecution(ctx, execution, fmt.Errorf("definition %s has no step %s", definition.DefinitionID, stepID), actorID)
		}

		// Merge and record the step's parameters before anything runs, so a
		// crash or pause replays the step with exactly these. A resumed step
		// finds its recorded params and reuses them untouched.
		params, recorded := execution.StepParams[stepID]
		if !recorded {
			params = make(map[string]any)
			if execution.Input != nil {
				if err := mergo.Merge(&params, execution.Input); err != nil {
					return s.failExecution(ctx, execution, fmt.Errorf("merging input for step %s: %w", stepID, err), actorID)
				}
			}
			if step.Parameters != nil {
				if err := mergo.Merge(&params, step.Parameters, mergo.WithOverride); err != nil {
					return s.failExecution(ctx, execution, fmt.Errorf("merging parameters for step %s: %w", stepID, err), actorID)
				}
			}
			execution.StepParams[stepID] = params
			if err := s.checkpoint(ctx, execution, actorID); err != nil {
				return execution, err
			}
		}

		action, err := s.dispatcher.ActionFor(step.Type)
		if err != nil {
			return s.failExecution(ctx, execution, fmt.Errorf("step %s: %w", stepID, err), actorID)
		}

		req := actions.ActionRequest{
			WorkspaceID: execution.WorkspaceID,
			ExecutionID: execution.ExecutionID,
			StepID:      stepID,
			ActorID:     actorID,
			Params:      params,
		}

		result, actErr := action.Execute(ctx, req)
		if actErr != nil {
			return s.failExecution(ctx, execution, fmt.Errorf("%w: step %s: %v", ErrExternalAction, stepID, actErr), actorID)
		}
		if result.Output == nil {
			result.Output = make(map[string]any)
		}

		// Confidence gate. Nothing has been committed yet, so pausing here
		// leaves no side effects behind.
		if step.ConfidenceThreshold != nil && stepID != approvedStepID && result.Confidence < *step.ConfidenceThreshold {
			return s.pauseForApproval(ctx, execution, step, result.Confidence, params, actorID)
		}

		// Commit phase: the step's durable side effect happens only after
		// its result cleared the gate.
		if committer, ok := action.(actions.Committer); ok {
			extra, commitErr := committer.Commit(ctx, req, result)
			if commitErr != nil {
				return s.failExecution(ctx, execution, fmt.Errorf("%w: step %s commit: %v", ErrExternalAction, stepID, commitErr), actorID)
			}
			for key, value := range extra {
				result.Output[key] = value
			}
		}

		execution.StepOutputs[stepID] = result.Output
		if step.NextStepID == "" {
			execution.Status = domain.ExecutionCompleted
			execution.CurrentStepID = nil
		} else {
			nextStepID := step.NextStepID
			execution.CurrentStepID = &nextStepID
		}
		if err := s.checkpoint(ctx, execution, actorID); err != nil {
			return execution, err
		}

		s.LogDebug(ctx, "Workflow step finished",
			slog.String("execution_id", execution.ExecutionID),
			slog.String("step_id", stepID),
			slog.Float64("confidence", result.Confidence))
	}

	if execution.Status == domain.ExecutionCompleted {
		s.LogInfo(ctx, "Workflow execution completed",
			slog.String("execution_id", execution.ExecutionID),
			slog.String("workspace_id", execution.WorkspaceID))
	}
	return execution, nil
}

// pauseForApproval checkpoints the execution as WAITING_APPROVAL and raises
// a PENDING approval request for the gated step.
func (s *workflowService) pauseForApproval(ctx context.Context, execution *domain.WorkflowExecution, step *domain.WorkflowStep, confidence float64, params map[string]any, actorID string) (*domain.WorkflowExecution, error) {
	reason := fmt.Sprintf("confidence %.2f is below threshold %.2f for step %s", confidence, *step.ConfidenceThreshold, step.StepID)

	execution.Status = domain.ExecutionWaitingApproval
	if err := s.checkpoint(ctx, execution, actorID); err != nil {
		return execution, err
	}

	if _, err := s.approvalSvc.RequestIntervention(ctx, execution.WorkspaceID, execution.ExecutionID, step.StepID, reason, params, actorID); err != nil {
		// A paused execution without an approval request would be stranded
		// forever, so this failure is loud and terminal.
		return s.failExecution(ctx, execution, fmt.Errorf("failed to create approval request for step %s: %w", step.StepID, err), actorID)
	}

	s.LogInfo(ctx, "Workflow execution paused for approval",
		slog.String("execution_id", execution.ExecutionID),
		slog.String("step_id", step.StepID),
		slog.Float64("confidence", confidence))
	return execution, nil
}

// failExecution records the cause on the execution and checkpoints it as
// FAILED. The failure is reported through the execution's status, not the
// returned error; an error is returned only when the checkpoint itself
// cannot be persisted.
func (s *workflowService) failExecution(ctx context.Context, execution *domain.WorkflowExecution, cause error, actorID string) (*domain.WorkflowExecution, error) {
	message := cause.Error()
	execution.Status = domain.ExecutionFailed
	execution.Error = &message

	s.LogError(ctx, cause, "Workflow execution failed",
		slog.String("execution_id", execution.ExecutionID),
		slog.String("workspace_id", execution.WorkspaceID))

	if err := s.checkpoint(ctx, execution, actorID); err != nil {
		return execution, err
	}
	return execution, nil
}

// checkpoint persists the execution's current state with an optimistic
// version check. Losing the check means another writer advanced or ended the
// execution in the meantime; the caller must not continue from stale state.
func (s *workflowService) checkpoint(ctx context.Context, execution *domain.WorkflowExecution, actorID string) error {
	expectedVersion := execution.Version
	execution.LastUpdatedAt = time.Now().UTC()
	execution.LastUpdatedBy = actorID

	if err := s.executionRepo.UpdateExecution(ctx, *execution, expectedVersion); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: execution %s was modified concurrently", ErrInvalidState, execution.ExecutionID)
		}
		s.LogError(ctx, err, "Failed to checkpoint execution",
			slog.String("execution_id", execution.ExecutionID),
			slog.Int64("version", expectedVersion))
		return err
	}
	execution.Version = expectedVersion + 1
	return nil
}

func (s *workflowService) getScopedExecution(ctx context.Context, workspaceID string, executionID string) (*domain.WorkflowExecution, error) {
	execution, err := s.executionRepo.FindExecutionByID(ctx, executionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find execution by ID",
				slog.String("execution_id", executionID))
		}
		return nil, err
	}

	if execution.WorkspaceID != workspaceID {
		s.LogDebug(ctx, "Execution found but belongs to different workspace",
			slog.String("execution_id", executionID),
			slog.String("execution_workspace", execution.WorkspaceID),
			slog.String("requested_workspace", workspaceID))
		return nil, apperrors.ErrNotFound // Obscure existence
	}
	return execution, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
