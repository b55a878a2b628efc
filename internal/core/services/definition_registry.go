package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
)

// definitionRegistry is the in-memory catalogue of workflow definitions.
// Definitions are code, not data: they are registered at process start and
// never change while the process runs, so a map behind a RWMutex is all the
// storage they need.
type definitionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]domain.WorkflowDefinition
}

// NewDefinitionRegistry creates an empty workflow definition registry
func NewDefinitionRegistry() portssvc.DefinitionRegistrySvc {
	return &definitionRegistry{
		definitions: make(map[string]domain.WorkflowDefinition),
	}
}

// Ensure definitionRegistry implements the DefinitionRegistrySvc interface
var _ portssvc.DefinitionRegistrySvc = (*definitionRegistry)(nil)

// Register validates and stores a definition. A rejected definition is a
// programming error in the caller, so validation is strict: unresolvable
// links, unknown step types or bad thresholds all fail registration.
func (r *definitionRegistry) Register(definition domain.WorkflowDefinition) error {
	if err := validateDefinition(definition); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[definition.DefinitionID]; exists {
		return fmt.Errorf("%w: workflow definition %s is already registered", apperrors.ErrDuplicate, definition.DefinitionID)
	}
	r.definitions[definition.DefinitionID] = definition
	return nil
}

// GetDefinition retrieves a registered definition by id.
func (r *definitionRegistry) GetDefinition(definitionID string) (*domain.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definition, exists := r.definitions[definitionID]
	if !exists {
		return nil, fmt.Errorf("%w: workflow definition %s", apperrors.ErrNotFound, definitionID)
	}
	return &definition, nil
}

// ListDefinitions returns every registered definition, ordered by id.
func (r *definitionRegistry) ListDefinitions() []domain.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]domain.WorkflowDefinition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].DefinitionID < definitions[j].DefinitionID
	})
	return definitions
}

func validateDefinition(definition domain.WorkflowDefinition) error {
	if definition.DefinitionID == "" {
		return fmt.Errorf("%w: workflow definition id is required", apperrors.ErrValidation)
	}
	if len(definition.Steps) == 0 {
		return fmt.Errorf("%w: workflow definition %s has no steps", apperrors.ErrValidation, definition.DefinitionID)
	}

	stepsByID := make(map[string]domain.WorkflowStep, len(definition.Steps))
	for _, step := range definition.Steps {
		if step.StepID == "" {
			return fmt.Errorf("%w: workflow definition %s has a step without an id", apperrors.ErrValidation, definition.DefinitionID)
		}
		if _, dup := stepsByID[step.StepID]; dup {
			return fmt.Errorf("%w: workflow definition %s declares step %s twice", apperrors.ErrValidation, definition.DefinitionID, step.StepID)
		}
		if !isKnownStepType(step.Type) {
			return fmt.Errorf("%w: step %s has unknown type %q", apperrors.ErrValidation, step.StepID, step.Type)
		}
		if step.ConfidenceThreshold != nil {
			if t := *step.ConfidenceThreshold; t < 0 || t > 1 {
				return fmt.Errorf("%w: step %s has confidence threshold %v outside [0,1]", apperrors.ErrValidation, step.StepID, t)
			}
		}
		stepsByID[step.StepID] = step
	}

	if _, ok := stepsByID[definition.StartStepID]; !ok {
		return fmt.Errorf("%w: workflow definition %s start step %q does not exist", apperrors.ErrValidation, definition.DefinitionID, definition.StartStepID)
	}
	for _, step := range definition.Steps {
		if step.NextStepID == "" {
			continue
		}
		if _, ok := stepsByID[step.NextStepID]; !ok {
			return fmt.Errorf("%w: step %s links to unknown step %q", apperrors.ErrValidation, step.StepID, step.NextStepID)
		}
	}

	// Walk the chain from the start step; a revisited step would trap the
	// engine in a loop.
	visited := make(map[string]bool, len(definition.Steps))
	for stepID := definition.StartStepID; stepID != ""; stepID = stepsByID[stepID].NextStepID {
		if visited[stepID] {
			return fmt.Errorf("%w: workflow definition %s has a cycle through step %s", apperrors.ErrValidation, definition.DefinitionID, stepID)
		}
		visited[stepID] = true
	}

	return nil
}

func isKnownStepType(t domain.StepType) bool {
	for _, known := range domain.KnownStepTypes() {
		if t == known {
			return true
		}
	}
	return false
}
