package actions

import (
	"context"
	"fmt"

	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
)

// agentExecutionAction delegates a step to an agent runner. The runner's
// reported confidence feeds the step's gate; the action itself has no side
// effects to commit.
type agentExecutionAction struct {
	agent portssvc.AgentRunnerSvc
}

var _ Action = (*agentExecutionAction)(nil)

func (a *agentExecutionAction) Execute(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	task := stringParam(req.Params, "task", "default")
	output, confidence, err := a.agent.RunTask(ctx, task, req.Params)
	if err != nil {
		return nil, fmt.Errorf("agent task %q failed: %w", task, err)
	}
	if output == nil {
		output = map[string]any{}
	}
	return &ActionResult{Output: output, Confidence: confidence}, nil
}
