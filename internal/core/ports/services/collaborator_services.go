package services

import (
	"context"

	"github.com/opsarc/paperflow/internal/core/domain"
)

// DocumentExtractorSvc pulls structured invoice fields out of a raw document
// payload. Implementations are external collaborators (LLM-backed extractors
// or deterministic local ones); the engine only consumes the reported fields
// and confidence.
type DocumentExtractorSvc interface {
	// ExtractInvoice reads an invoice document and reports the extracted
	// fields together with a confidence in [0,1].
	ExtractInvoice(ctx context.Context, document map[string]any) (*domain.InvoiceExtraction, error)
}

// AgentRunnerSvc delegates a free-form task to a sub-agent and reports its
// output and confidence. Like extraction, the runner is consumed, never
// implemented, by the engine.
type AgentRunnerSvc interface {
	// RunTask executes the named task with the given parameters.
	RunTask(ctx context.Context, task string, params map[string]any) (output map[string]any, confidence float64, err error)
}
