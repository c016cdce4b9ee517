// Package workflow is the mutation surface of a workflow definition. Every
// operation takes a definition by value and returns a new one; the input is
// never modified and no I/O is performed.
package workflow

import (
	"fmt"

	"github.com/dukex/automations/pkg/branching"
	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/ordering"
	"github.com/dukex/automations/pkg/registry"
	"github.com/dukex/automations/pkg/triggers"
	"github.com/google/uuid"
)

// Builder applies edits to workflow definitions.
type Builder struct {
	registry *registry.Registry
	triggers *triggers.Validator
	newID    func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDGenerator replaces the provisional step id generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) {
		b.newID = fn
	}
}

// WithRegistry replaces the step registry.
func WithRegistry(r *registry.Registry) Option {
	return func(b *Builder) {
		b.registry = r
	}
}

// NewBuilder creates a builder with the default registry and trigger validator.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		newID: NewProvisionalID,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.registry == nil {
		b.registry = registry.NewRegistry()
	}

	b.triggers = triggers.NewValidator()

	return b
}

// NewProvisionalID returns a fresh client-side step id.
func NewProvisionalID() string {
	return models.ProvisionalIDPrefix + uuid.NewString()
}

// Registry exposes the step registry the builder uses.
func (b *Builder) Registry() *registry.Registry {
	return b.registry
}

// New returns an empty definition with a manual trigger.
func (b *Builder) New(name, description string) models.WorkflowDefinition {
	return models.WorkflowDefinition{
		Name:        name,
		Description: description,
		Steps:       []models.Step{},
		Triggers:    []models.Trigger{{Kind: models.TriggerKindManual}},
	}
}

// FromTemplate seeds a new definition from a template. Payloads, order and
// branches are copied; every step gets a fresh provisional id and branches
// follow the renamed steps. Targets outside the template are dropped.
func (b *Builder) FromTemplate(name string, tmpl models.Template) (models.WorkflowDefinition, error) {
	def := b.New(name, tmpl.Description)

	steps := ordering.Normalize(tmpl.Steps)
	ids := make(map[string]string, len(steps))

	for i := range steps {
		fresh := b.newID()
		ids[steps[i].ID] = fresh
		steps[i].ID = fresh
	}

	for i := range steps {
		for outcome, target := range steps[i].Branches {
			switch {
			case target.IsExit():
			case ids[string(target)] != "":
				steps[i].Branches[outcome] = models.Target(ids[string(target)])
			default:
				delete(steps[i].Branches, outcome)
			}
		}

		if len(steps[i].Branches) == 0 {
			steps[i].Branches = nil
		}
	}

	def.Steps = steps

	return b.commit("from_template", models.WorkflowDefinition{}, def)
}

// AddStep appends a step of kind with its default payload.
func (b *Builder) AddStep(def models.WorkflowDefinition, kind models.StepKind) (models.WorkflowDefinition, error) {
	step, err := b.registry.DefaultStep(kind)
	if err != nil {
		return def, err
	}

	step.ID = b.newID()

	next := def.Clone()
	next.Steps = ordering.Insert(def.Steps, step)

	return b.commit("add_step", def, next)
}

// RemoveStep deletes a step and clears every branch that targeted it. The
// last remaining step cannot be removed.
func (b *Builder) RemoveStep(def models.WorkflowDefinition, id string) (models.WorkflowDefinition, error) {
	if _, ok := def.Step(id); !ok {
		return def, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	if len(def.Steps) == 1 {
		return def, &InvariantError{Op: "remove_step", Reason: "a workflow must keep at least one step"}
	}

	next := def.Clone()
	next.Steps = branching.ClearTarget(ordering.Delete(def.Steps, id), id)

	return b.commit("remove_step", def, next)
}

// DuplicateStep appends a copy of a step under a fresh id, without its branches.
func (b *Builder) DuplicateStep(def models.WorkflowDefinition, id string) (models.WorkflowDefinition, error) {
	if _, ok := def.Step(id); !ok {
		return def, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	next := def.Clone()
	next.Steps = ordering.Duplicate(def.Steps, id, b.newID())

	return b.commit("duplicate_step", def, next)
}

// ReorderStep moves a step to toIndex, clamped to the list bounds.
func (b *Builder) ReorderStep(def models.WorkflowDefinition, id string, toIndex int) (models.WorkflowDefinition, error) {
	if _, ok := def.Step(id); !ok {
		return def, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	next := def.Clone()
	next.Steps = ordering.Move(def.Steps, id, toIndex)

	return b.commit("reorder_step", def, next)
}

// UpdateStepField assigns one payload field. No validation runs.
func (b *Builder) UpdateStepField(def models.WorkflowDefinition, id, field string, value any) (models.WorkflowDefinition, error) {
	i := models.FindStep(def.Steps, id)
	if i < 0 {
		return def, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	step, err := b.registry.SetField(def.Steps[i], field, value)
	if err != nil {
		return def, err
	}

	next := def.Clone()
	next.Steps[i] = step

	return b.commit("update_step_field", def, next)
}

// SetBranch wires outcome of a condition step to target. An empty target
// clears the outcome so it falls through to the next step.
func (b *Builder) SetBranch(
	def models.WorkflowDefinition,
	stepID string,
	outcome models.Outcome,
	target models.Target,
) (models.WorkflowDefinition, error) {
	i := models.FindStep(def.Steps, stepID)
	if i < 0 {
		return def, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	if !def.Steps[i].IsCondition() {
		return def, fmt.Errorf("%w: %s steps cannot branch", ErrInvalidBranch, def.Steps[i].Kind)
	}

	if !outcome.IsValid() {
		return def, fmt.Errorf("%w: unknown outcome %q", ErrInvalidBranch, outcome)
	}

	if e := branching.CheckTarget(def.Steps, stepID, target); target != "" && e != nil {
		return def, fmt.Errorf("%w: %s", ErrInvalidBranch, e.Message)
	}

	next := def.Clone()
	step := &next.Steps[i]

	if target == "" {
		delete(step.Branches, outcome)

		if len(step.Branches) == 0 {
			step.Branches = nil
		}
	} else {
		if step.Branches == nil {
			step.Branches = models.Branches{}
		}

		step.Branches[outcome] = target
	}

	return b.commit("set_branch", def, next)
}

// ResolveBranches returns where each outcome of a condition step leads.
func (b *Builder) ResolveBranches(def models.WorkflowDefinition, stepID string) (models.Resolution, error) {
	step, ok := def.Step(stepID)
	if !ok {
		return models.Resolution{}, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	return branching.Resolve(step, def.Steps)
}

// RemapProvisionalIDs rewrites step ids and branch targets found in idMap to
// their permanent ids. An empty map returns def unchanged.
func (b *Builder) RemapProvisionalIDs(def models.WorkflowDefinition, idMap map[string]string) (models.WorkflowDefinition, error) {
	if len(idMap) == 0 {
		return def, nil
	}

	next := def.Clone()
	next.Steps = branching.RemapTargets(def.Steps, idMap)

	for i := range next.Steps {
		if permanent, ok := idMap[next.Steps[i].ID]; ok {
			next.Steps[i].ID = permanent
		}
	}

	return b.commit("remap_provisional_ids", def, next)
}

// IDMap indexes the mappings returned by a create call.
func IDMap(mappings []models.IDMapping) map[string]string {
	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if m.TempID != "" && m.TempID != m.PermanentID {
			out[m.TempID] = m.PermanentID
		}
	}

	return out
}

// commit returns next when it keeps order contiguous, ids unique and branches
// wired to existing steps, or prior with the reason otherwise.
func (b *Builder) commit(op string, prior, next models.WorkflowDefinition) (models.WorkflowDefinition, error) {
	violations := structuralErrors(next.Steps)
	if len(violations) > 0 {
		return prior, &InvariantError{Op: op, Violations: violations}
	}

	return next, nil
}

func structuralErrors(steps []models.Step) []models.StructuralError {
	var errs []models.StructuralError

	if !ordering.IsContiguous(steps) {
		errs = append(errs, models.StructuralError{
			Code:    models.StructuralOrderGap,
			Message: "step order must be contiguous and start at zero",
		})
	}

	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if models.Target(s.ID).IsExit() {
			errs = append(errs, models.StructuralError{
				StepID:  s.ID,
				Code:    models.StructuralReservedID,
				Message: "step id is reserved for the exit target",
			})
		}

		if seen[s.ID] {
			errs = append(errs, models.StructuralError{
				StepID:  s.ID,
				Code:    models.StructuralDuplicateID,
				Message: "step id is used more than once",
			})
		}

		seen[s.ID] = true
	}

	return append(errs, branching.Validate(steps)...)
}
