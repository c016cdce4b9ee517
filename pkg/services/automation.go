package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/automations/pkg/eventbus"
	"github.com/dukex/automations/pkg/events"
	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/otelhelper"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/dukex/automations/pkg/workflow"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Automation saves and tests workflow definitions against the external API.
// It never modifies the definitions it is given.
type Automation struct {
	builder   *workflow.Builder
	store     persistence.Store
	tester    runtime.Tester
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
}

type AutomationOption func(*Automation)

func WithPublisher(p eventbus.EventPublisher) AutomationOption {
	return func(a *Automation) {
		if p != nil {
			a.publisher = p
		}
	}
}

func WithTracer(t trace.Tracer) AutomationOption {
	return func(a *Automation) {
		if t != nil {
			a.tracer = t
		}
	}
}

// NewAutomation creates the service. tester may be nil, in which case step
// tests fail with runtime.ErrRuntimeUnavailable.
func NewAutomation(
	builder *workflow.Builder,
	store persistence.Store,
	tester runtime.Tester,
	logger *slog.Logger,
	opts ...AutomationOption,
) *Automation {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Automation{
		builder:   builder,
		store:     store,
		tester:    tester,
		publisher: eventbus.Discard,
		tracer:    otelhelper.NoopTracer(),
		logger:    logger.With("module", "automation_service"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Automation) Builder() *workflow.Builder {
	return a.builder
}

// HealthCheck checks the health of the persistence layer.
func (a *Automation) HealthCheck(ctx context.Context) (string, bool) {
	if a.store == nil {
		return "Persistence layer not initialized", false
	}

	if err := a.store.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SaveResult is a saved definition. On create Definition carries the
// permanent ids and IDMappings the raw mapping returned by the API.
type SaveResult struct {
	Definition models.WorkflowDefinition `json:"definition"`
	Created    bool                      `json:"created"`
	IDMappings []models.IDMapping        `json:"idMappings,omitempty"`
}

// Save validates def and creates or updates it. An invalid definition returns
// a *ValidationFailedError without contacting the API.
func (a *Automation) Save(ctx context.Context, def models.WorkflowDefinition) (SaveResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "automation.save",
		attribute.String(otelhelper.AutomationIDKey, def.ID),
		attribute.String(otelhelper.AutomationNameKey, def.Name),
		attribute.Int(otelhelper.StepCountKey, len(def.Steps)),
		attribute.Int(otelhelper.TriggerCountKey, len(def.Triggers)),
	)
	defer span.End()

	report := a.builder.Validate(def)
	if !report.Valid {
		err := &ValidationFailedError{Op: "Save", Report: report}
		otelhelper.SetError(span, err)

		return SaveResult{}, err
	}

	var (
		result SaveResult
		err    error
	)

	if def.IsPersisted() {
		result, err = a.update(ctx, def)
	} else {
		result, err = a.create(ctx, def)
	}

	if err != nil {
		otelhelper.SetError(span, err)
		a.logger.ErrorContext(ctx, "failed to save automation", "automation_id", def.ID, "error", err)

		return SaveResult{}, err
	}

	span.SetAttributes(attribute.String(otelhelper.AutomationIDKey, result.Definition.ID))
	a.logger.InfoContext(ctx, "automation saved",
		"automation_id", result.Definition.ID,
		"created", result.Created,
		"steps", len(result.Definition.Steps))

	a.publish(ctx, result.Definition.ID, events.NewAutomationSaved(result.Definition, result.Created, result.IDMappings))

	return result, nil
}

func (a *Automation) create(ctx context.Context, def models.WorkflowDefinition) (SaveResult, error) {
	created, err := a.store.Create(ctx, def)
	if err != nil {
		return SaveResult{}, newServiceError("Save", "create_failed", err)
	}

	saved := def.Clone()
	saved.ID = created.ID

	saved, err = a.builder.RemapProvisionalIDs(saved, workflow.IDMap(created.Steps))
	if err != nil {
		return SaveResult{}, newServiceError("Save", "remap_failed", err)
	}

	return SaveResult{Definition: saved, Created: true, IDMappings: created.Steps}, nil
}

func (a *Automation) update(ctx context.Context, def models.WorkflowDefinition) (SaveResult, error) {
	if err := a.store.Update(ctx, def.ID, def); err != nil {
		return SaveResult{}, newServiceError("Save", "update_failed", err)
	}

	return SaveResult{Definition: def}, nil
}

// SaveSteps replaces only the steps of a persisted automation.
func (a *Automation) SaveSteps(ctx context.Context, def models.WorkflowDefinition) error {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "automation.save_steps",
		attribute.String(otelhelper.AutomationIDKey, def.ID),
		attribute.Int(otelhelper.StepCountKey, len(def.Steps)),
	)
	defer span.End()

	if !def.IsPersisted() {
		otelhelper.SetError(span, ErrNotPersisted)

		return newServiceError("SaveSteps", "not_persisted", ErrNotPersisted)
	}

	if report := a.builder.Validate(def); !report.Valid {
		err := &ValidationFailedError{Op: "SaveSteps", Report: report}
		otelhelper.SetError(span, err)

		return err
	}

	if err := a.store.UpdateStepsOnly(ctx, def.ID, def.Steps); err != nil {
		otelhelper.SetError(span, err)
		a.logger.ErrorContext(ctx, "failed to save steps", "automation_id", def.ID, "error", err)

		return newServiceError("SaveSteps", "update_failed", err)
	}

	a.publish(ctx, def.ID, events.NewAutomationStepsSaved(def.ID, len(def.Steps)))

	return nil
}

// TestStep asks the runtime to evaluate one step of a saved automation
// against sample, which must be a JSON object. An empty sample means {}.
func (a *Automation) TestStep(
	ctx context.Context,
	def models.WorkflowDefinition,
	stepID string,
	sample json.RawMessage,
) (runtime.TestResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "automation.test_step",
		attribute.String(otelhelper.AutomationIDKey, def.ID),
		attribute.String(otelhelper.StepIDKey, stepID),
	)
	defer span.End()

	req, err := a.testRequest(def, stepID, sample)
	if err != nil {
		otelhelper.SetError(span, err)

		return runtime.TestResult{}, err
	}

	span.SetAttributes(attribute.String(otelhelper.StepKindKey, string(req.Step.Kind)))

	if a.tester == nil {
		err := newServiceError("TestStep", "runtime_unavailable", runtime.ErrRuntimeUnavailable)
		otelhelper.SetError(span, err)

		return runtime.TestResult{}, err
	}

	result, err := a.tester.TestStep(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)
		a.logger.ErrorContext(ctx, "step test failed",
			"automation_id", def.ID,
			"step_id", stepID,
			"error", err)

		return runtime.TestResult{}, newServiceError("TestStep", "test_failed", err)
	}

	a.logger.InfoContext(ctx, "step tested",
		"automation_id", def.ID,
		"step_id", stepID,
		"success", result.Success)

	a.publish(ctx, def.ID, events.NewStepTested(def.ID, req.Step, result.Success, result.Message))

	return result, nil
}

func (a *Automation) testRequest(def models.WorkflowDefinition, stepID string, sample json.RawMessage) (runtime.TestRequest, error) {
	if !def.IsPersisted() {
		return runtime.TestRequest{}, newServiceError("TestStep", "not_persisted", ErrNotPersisted)
	}

	step, ok := def.Step(stepID)
	if !ok {
		return runtime.TestRequest{}, newServiceError("TestStep", "step_not_found",
			fmt.Errorf("%w: %s", workflow.ErrStepNotFound, stepID))
	}

	if errs := a.builder.ValidateStep(step); len(errs) > 0 {
		return runtime.TestRequest{}, &ValidationFailedError{
			Op: "TestStep",
			Report: models.ValidationReport{
				FieldErrors:      errs,
				StructuralErrors: []models.StructuralError{},
				Warnings:         []models.Warning{},
			},
		}
	}

	if len(sample) == 0 {
		sample = json.RawMessage(`{}`)
	}

	if !gjson.ValidBytes(sample) || !gjson.ParseBytes(sample).IsObject() {
		return runtime.TestRequest{}, newServiceError("TestStep", "invalid_sample", ErrInvalidSample)
	}

	return runtime.TestRequest{
		AutomationID:  def.ID,
		StepID:        step.ID,
		Step:          step,
		SampleContact: sample,
	}, nil
}

// NewFromTemplate loads a template and builds a fresh unsaved definition from it.
// An empty name keeps the template's name.
func (a *Automation) NewFromTemplate(ctx context.Context, name, templateID string) (models.WorkflowDefinition, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "automation.new_from_template",
		attribute.String(otelhelper.TemplateIDKey, templateID),
	)
	defer span.End()

	tmpl, err := a.store.Template(ctx, templateID)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.WorkflowDefinition{}, newServiceError("NewFromTemplate", "template_failed", err)
	}

	if name == "" {
		name = tmpl.Name
	}

	def, err := a.builder.FromTemplate(name, tmpl)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.WorkflowDefinition{}, newServiceError("NewFromTemplate", "template_invalid", err)
	}

	return def, nil
}

func (a *Automation) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := a.publisher.Publish(ctx, key, event); err != nil {
		a.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"automation_id", key,
			"error", err)
	}
}
