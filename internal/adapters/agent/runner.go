package agent

import (
	"context"

	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
)

// TaskRunner is a deterministic stand-in for an agent backend. It echoes the
// task and selected inputs as the step output and reports the confidence
// declared in the parameters, defaulting to full confidence. A deployment
// with a real agent swaps in its own implementation of the same port.
type TaskRunner struct{}

var _ portssvc.AgentRunnerSvc = (*TaskRunner)(nil)

// NewTaskRunner creates the local agent runner.
func NewTaskRunner() *TaskRunner {
	return &TaskRunner{}
}

// RunTask completes the task locally without calling out anywhere.
func (r *TaskRunner) RunTask(ctx context.Context, task string, params map[string]any) (map[string]any, float64, error) {
	confidence := 1.0
	if declared, ok := params["confidence"].(float64); ok {
		confidence = clamp01(declared)
	}

	output := map[string]any{
		"task":   task,
		"status": "completed",
	}
	if result, ok := params["result"]; ok {
		output["result"] = result
	}
	if document, ok := params["document"]; ok {
		output["document"] = document
	}
	return output, confidence, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
