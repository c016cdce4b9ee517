package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/dukex/automations/pkg/workflow"
)

// Session holds the definition being edited. Every accepted edit bumps the
// revision; boundary calls work on a snapshot and report Stale when an edit
// landed while they were in flight.
type Session struct {
	service *Automation

	mu       sync.Mutex
	def      models.WorkflowDefinition
	revision uint64
	saving   bool
}

func NewSession(service *Automation, def models.WorkflowDefinition) *Session {
	return &Session{service: service, def: def}
}

// Definition returns the current definition and its revision.
func (s *Session) Definition() (models.WorkflowDefinition, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.def, s.revision
}

// Apply runs one builder operation on the current definition. A failed
// operation leaves the session untouched.
func (s *Session) Apply(op func(models.WorkflowDefinition) (models.WorkflowDefinition, error)) (models.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := op(s.def)
	if err != nil {
		return s.def, err
	}

	s.def = next
	s.revision++

	return next, nil
}

// SaveOutcome reports a session save.
type SaveOutcome struct {
	SaveResult

	// Stale means the session was edited while the save was in flight. The
	// session keeps those edits; only the id remap of a create is applied.
	Stale bool `json:"stale"`
}

// Save saves a snapshot of the current definition. Only one save may run at a time.
func (s *Session) Save(ctx context.Context) (SaveOutcome, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()

		return SaveOutcome{}, newServiceError("Save", "save_in_progress", ErrSaveInProgress)
	}

	s.saving = true
	snapshot, revision := s.def, s.revision
	s.mu.Unlock()

	result, err := s.service.Save(ctx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saving = false

	if err != nil {
		return SaveOutcome{}, err
	}

	if s.revision == revision {
		if result.Created {
			s.def = result.Definition
			s.revision++
		}

		return SaveOutcome{SaveResult: result}, nil
	}

	if result.Created {
		current := s.def.Clone()
		current.ID = result.Definition.ID

		remapped, err := s.service.Builder().RemapProvisionalIDs(current, workflow.IDMap(result.IDMappings))
		if err != nil {
			return SaveOutcome{}, newServiceError("Save", "remap_failed", err)
		}

		s.def = remapped
		s.revision++
	}

	return SaveOutcome{SaveResult: result, Stale: true}, nil
}

// TestOutcome reports a session step test.
type TestOutcome struct {
	runtime.TestResult

	Stale bool `json:"stale"`
}

// TestStep tests a step of the current definition.
func (s *Session) TestStep(ctx context.Context, stepID string, sample json.RawMessage) (TestOutcome, error) {
	snapshot, revision := s.Definition()

	result, err := s.service.TestStep(ctx, snapshot, stepID, sample)
	if err != nil {
		return TestOutcome{}, err
	}

	_, current := s.Definition()

	return TestOutcome{TestResult: result, Stale: current != revision}, nil
}
