package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dukex/automations/pkg/events"
	"github.com/dukex/automations/pkg/mocks"
	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/otelhelper"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/persistence/file"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/dukex/automations/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func draft(t *testing.T, b *workflow.Builder) models.WorkflowDefinition {
	t.Helper()

	def := b.New("Welcome", "onboarding")

	def, err := b.AddStep(def, models.StepKindEmail)
	require.NoError(t, err)

	def, err = b.AddStep(def, models.StepKindCondition)
	require.NoError(t, err)

	def, err = b.AddStep(def, models.StepKindAction)
	require.NoError(t, err)

	def, err = b.SetBranch(def, def.Steps[1].ID, models.OutcomeYes, models.Target(def.Steps[0].ID))
	require.NoError(t, err)

	return def
}

func newFileService(t *testing.T, opts ...AutomationOption) (*Automation, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return NewAutomation(workflow.NewBuilder(), store, nil, nil, opts...), store
}

func TestAutomation_SaveCreatesAndRemaps(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("events.AutomationSaved")).Return(nil)

	service, store := newFileService(t, WithPublisher(bus))
	def := draft(t, service.Builder())

	result, err := service.Save(t.Context(), def)
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.NotEmpty(t, result.Definition.ID)
	assert.Empty(t, def.ID, "caller definition is untouched")
	assert.True(t, models.IsProvisionalID(def.Steps[0].ID))

	for _, step := range result.Definition.Steps {
		assert.False(t, models.IsProvisionalID(step.ID), step.ID)
	}

	cond := result.Definition.Steps[1]
	assert.Equal(t, models.Target(result.Definition.Steps[0].ID), cond.Branches[models.OutcomeYes])

	stored, err := store.AutomationByID(t.Context(), result.Definition.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Definition.Steps, stored.Steps)

	bus.AssertNumberOfCalls(t, "Publish", 1)

	event := bus.Calls[0].Arguments.Get(2).(events.AutomationSaved)
	assert.True(t, event.Created)
	assert.Len(t, event.IDMappings, 3)
}

func TestAutomation_SaveUpdatesPersisted(t *testing.T) {
	service, store := newFileService(t)

	first, err := service.Save(t.Context(), draft(t, service.Builder()))
	require.NoError(t, err)

	def := first.Definition
	def.Name = "Renamed"

	second, err := service.Save(t.Context(), def)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, def, second.Definition)

	stored, err := store.AutomationByID(t.Context(), def.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
}

func TestAutomation_SaveRejectsInvalid(t *testing.T) {
	store := &mocks.MockStore{}
	service := NewAutomation(workflow.NewBuilder(), store, nil, nil)

	def := service.Builder().New("Empty", "")

	_, err := service.Save(t.Context(), def)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	report, ok := ValidationReport(err)
	require.True(t, ok)
	assert.False(t, report.Valid)
	assert.Equal(t, workflow.CodeMinSteps, report.FieldErrors[0].Code)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAutomation_SaveWrapsStoreErrors(t *testing.T) {
	store := &mocks.MockStore{}
	service := NewAutomation(workflow.NewBuilder(), store, nil, nil)
	def := draft(t, service.Builder())

	store.On("Create", mock.Anything, def).
		Return(persistence.CreateResult{}, persistence.NewAutomationError("Create", "", persistence.ErrUnavailable))

	_, err := service.Save(t.Context(), def)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	var sErr *ServiceError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "create_failed", sErr.Code)

	persisted := def
	persisted.ID = "a-1"
	store.On("Update", mock.Anything, "a-1", persisted).
		Return(persistence.NewAutomationError("Update", "a-1", persistence.ErrAutomationNotFound))

	_, err = service.Save(t.Context(), persisted)
	assert.True(t, IsNotFound(err))
}

func TestAutomation_PublishFailureDoesNotFailSave(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	service, _ := newFileService(t, WithPublisher(bus))

	_, err := service.Save(t.Context(), draft(t, service.Builder()))
	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestAutomation_SaveSteps(t *testing.T) {
	service, store := newFileService(t)

	err := service.SaveSteps(t.Context(), draft(t, service.Builder()))
	require.ErrorIs(t, err, ErrNotPersisted)

	saved, err := service.Save(t.Context(), draft(t, service.Builder()))
	require.NoError(t, err)

	def := saved.Definition
	def.Name = "not stored by SaveSteps"
	def.Steps[0].Email.Subject = "Changed"

	require.NoError(t, service.SaveSteps(t.Context(), def))

	stored, err := store.AutomationByID(t.Context(), def.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", stored.Name)
	assert.Equal(t, "Changed", stored.Steps[0].Email.Subject)
}

func TestAutomation_TestStep(t *testing.T) {
	tester := &mocks.MockTester{}
	service := NewAutomation(workflow.NewBuilder(), file.NewPersistence(t.TempDir()), tester, nil)

	saved, err := service.Save(t.Context(), draft(t, service.Builder()))
	require.NoError(t, err)

	def := saved.Definition
	cond := def.Steps[1]

	tester.On("TestStep", mock.Anything, mock.MatchedBy(func(req runtime.TestRequest) bool {
		return req.AutomationID == def.ID && req.StepID == cond.ID && req.Step.Kind == models.StepKindCondition
	})).Return(runtime.TestResult{Success: true, Message: "matched"}, nil)

	result, err := service.TestStep(t.Context(), def, cond.ID, json.RawMessage(`{"email":"ada@example.com"}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "matched", result.Message)

	tester.AssertExpectations(t)
}

func TestAutomation_TestStepPreconditions(t *testing.T) {
	calls := 0
	tester := runtime.TesterFunc(func(context.Context, runtime.TestRequest) (runtime.TestResult, error) {
		calls++

		return runtime.TestResult{Success: true}, nil
	})

	service := NewAutomation(workflow.NewBuilder(), file.NewPersistence(t.TempDir()), tester, nil)
	unsaved := draft(t, service.Builder())

	saved, err := service.Save(t.Context(), unsaved)
	require.NoError(t, err)

	def := saved.Definition
	stepID := def.Steps[0].ID

	_, err = service.TestStep(t.Context(), unsaved, unsaved.Steps[0].ID, nil)
	require.ErrorIs(t, err, ErrNotPersisted)

	_, err = service.TestStep(t.Context(), def, "missing", nil)
	assert.True(t, IsNotFound(err))

	_, err = service.TestStep(t.Context(), def, stepID, json.RawMessage(`[1,2]`))
	require.ErrorIs(t, err, ErrInvalidSample)

	_, err = service.TestStep(t.Context(), def, stepID, json.RawMessage(`{"email":`))
	require.ErrorIs(t, err, ErrInvalidSample)

	broken, err := service.Builder().UpdateStepField(def, stepID, "subject", "")
	require.NoError(t, err)
	_, err = service.TestStep(t.Context(), broken, stepID, nil)
	require.ErrorIs(t, err, ErrValidationFailed)

	assert.Equal(t, 0, calls)

	_, err = service.TestStep(t.Context(), def, stepID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestAutomation_TestStepAddedAfterCreate(t *testing.T) {
	var tested []string

	tester := runtime.TesterFunc(func(_ context.Context, req runtime.TestRequest) (runtime.TestResult, error) {
		tested = append(tested, req.StepID)

		return runtime.TestResult{Success: true}, nil
	})

	service := NewAutomation(workflow.NewBuilder(), file.NewPersistence(t.TempDir()), tester, nil)

	saved, err := service.Save(t.Context(), draft(t, service.Builder()))
	require.NoError(t, err)

	def, err := service.Builder().AddStep(saved.Definition, models.StepKindEmail)
	require.NoError(t, err)

	added := def.Steps[len(def.Steps)-1]

	for range 3 {
		updated, err := service.Save(t.Context(), def)
		require.NoError(t, err)
		assert.False(t, updated.Created)

		def = updated.Definition
	}

	result, err := service.TestStep(t.Context(), def, added.ID, json.RawMessage(`{"email":"ada@example.com"}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{added.ID}, tested)

	_, err = service.TestStep(t.Context(), def, added.ID, nil)
	require.NoError(t, err)
}

func TestAutomation_TestStepRecordsErrorCode(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	service, _ := newFileService(t, WithTracer(provider.Tracer("test")))

	saved, err := service.Save(t.Context(), draft(t, service.Builder()))
	require.NoError(t, err)

	_, err = service.TestStep(t.Context(), saved.Definition, saved.Definition.Steps[0].ID, json.RawMessage(`[1]`))
	require.ErrorIs(t, err, ErrInvalidSample)

	var span sdktrace.ReadOnlySpan

	for _, s := range recorder.Ended() {
		if s.Name() == "automation.test_step" {
			span = s
		}
	}

	require.NotNil(t, span)
	assert.Contains(t, span.Attributes(), attribute.String(otelhelper.ErrorCodeKey, "invalid_sample"))
}

func TestAutomation_TestStepRuntimeErrors(t *testing.T) {
	service, _ := newFileService(t)

	saved, err := service.Save(t.Context(), draft(t, service.Builder()))
	require.NoError(t, err)

	_, err = service.TestStep(t.Context(), saved.Definition, saved.Definition.Steps[0].ID, nil)
	require.ErrorIs(t, err, runtime.ErrRuntimeUnavailable)
	assert.True(t, IsUnavailable(err))

	failing := runtime.TesterFunc(func(context.Context, runtime.TestRequest) (runtime.TestResult, error) {
		return runtime.TestResult{}, runtime.ErrRuntimeUnavailable
	})
	service.tester = failing

	_, err = service.TestStep(t.Context(), saved.Definition, saved.Definition.Steps[0].ID, nil)
	assert.True(t, IsUnavailable(err))
}

func TestAutomation_NewFromTemplate(t *testing.T) {
	service, store := newFileService(t)

	tmpl := models.Template{
		ID:   "welcome",
		Name: "Welcome series",
		Steps: []models.Step{
			{ID: "a", Kind: models.StepKindEmail, Order: 0, Email: &models.EmailPayload{Subject: "Hi", Body: "Hello"}},
			{ID: "b", Kind: models.StepKindDelay, Order: 1, Delay: &models.DelayPayload{DelayDays: 2}},
		},
	}
	require.NoError(t, store.SaveTemplate(t.Context(), tmpl))

	def, err := service.NewFromTemplate(t.Context(), "", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Welcome series", def.Name)
	require.Len(t, def.Steps, 2)
	assert.True(t, models.IsProvisionalID(def.Steps[0].ID))

	named, err := service.NewFromTemplate(t.Context(), "Mine", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Mine", named.Name)

	_, err = service.NewFromTemplate(t.Context(), "", "missing")
	assert.True(t, IsNotFound(err))
}

func TestAutomation_HealthCheck(t *testing.T) {
	service, _ := newFileService(t)

	msg, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", msg)

	_, ok = NewAutomation(workflow.NewBuilder(), nil, nil, nil).HealthCheck(t.Context())
	assert.False(t, ok)
}
