package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draft() models.WorkflowDefinition {
	return models.WorkflowDefinition{
		Name: "Welcome",
		Steps: []models.Step{
			{ID: "temp_a", Kind: models.StepKindEmail, Order: 0, Email: &models.EmailPayload{Subject: "Hi", Body: "Hello"}},
			{
				ID: "temp_b", Kind: models.StepKindCondition, Order: 1,
				Condition: &models.ConditionPayload{ConditionType: "open"},
				Branches:  models.Branches{models.OutcomeYes: "temp_a", models.OutcomeNo: models.Exit},
			},
		},
		Triggers: []models.Trigger{{Kind: models.TriggerKindManual}},
	}
}

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	require.NoError(t, fp.HealthCheck(t.Context()))
	require.NoError(t, fp.Close(t.Context()))

	missing := NewPersistence(filepath.Join(t.TempDir(), "nope"))
	err := missing.HealthCheck(t.Context())
	assert.True(t, persistence.IsUnavailable(err))
}

func TestPersistence_Create(t *testing.T) {
	dir := t.TempDir()
	fp := NewPersistence(dir)
	def := draft()

	res, err := fp.Create(t.Context(), def)
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, "temp_a", res.Steps[0].TempID)
	assert.NotEqual(t, "temp_a", res.Steps[0].PermanentID)
	assert.FileExists(t, filepath.Join(dir, "automations", res.ID+".json"))
	assert.Equal(t, "temp_a", def.Steps[0].ID, "caller copy untouched")

	stored, err := fp.AutomationByID(t.Context(), res.ID)
	require.NoError(t, err)

	assert.Equal(t, res.ID, stored.ID)
	assert.Equal(t, res.Steps[0].PermanentID, stored.Steps[0].ID)
	assert.Equal(t, models.Target(res.Steps[0].PermanentID), stored.Steps[1].Branches[models.OutcomeYes])
	assert.Equal(t, models.Exit, stored.Steps[1].Branches[models.OutcomeNo])

	_, err = fp.Create(t.Context(), stored)
	require.ErrorIs(t, err, persistence.ErrAutomationAlreadyPersisted)
}

func TestPersistence_Update(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	res, err := fp.Create(t.Context(), draft())
	require.NoError(t, err)

	stored, err := fp.AutomationByID(t.Context(), res.ID)
	require.NoError(t, err)

	stored.Name = "Renamed"
	require.NoError(t, fp.Update(t.Context(), res.ID, stored))

	steps := models.CloneSteps(stored.Steps[:1])
	steps[0].Email.Subject = "Changed"
	require.NoError(t, fp.UpdateStepsOnly(t.Context(), res.ID, steps))

	reloaded, err := fp.AutomationByID(t.Context(), res.ID)
	require.NoError(t, err)

	assert.Equal(t, "Renamed", reloaded.Name)
	require.Len(t, reloaded.Steps, 1)
	assert.Equal(t, "Changed", reloaded.Steps[0].Email.Subject)
	assert.Len(t, reloaded.Triggers, 1)
}

func TestPersistence_NotFound(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	_, err := fp.AutomationByID(t.Context(), "missing")
	assert.True(t, persistence.IsAutomationNotFound(err))

	_, err = fp.AutomationByID(t.Context(), "../escape")
	assert.True(t, persistence.IsAutomationNotFound(err))

	err = fp.Update(t.Context(), "missing", draft())
	assert.True(t, persistence.IsAutomationNotFound(err))

	err = fp.UpdateStepsOnly(t.Context(), "missing", nil)
	assert.True(t, persistence.IsAutomationNotFound(err))

	_, err = fp.Template(t.Context(), "missing")
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestPersistence_Template(t *testing.T) {
	dir := t.TempDir()
	fp := NewPersistence(dir)

	tmpl := models.Template{
		ID:   "welcome",
		Name: "Welcome series",
		Steps: []models.Step{
			{ID: "a", Kind: models.StepKindDelay, Order: 0, Delay: &models.DelayPayload{DelayDays: 1}},
		},
	}
	require.NoError(t, fp.SaveTemplate(t.Context(), tmpl))

	loaded, err := fp.Template(t.Context(), "welcome")
	require.NoError(t, err)
	assert.Equal(t, tmpl, loaded)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "json-one.json"), []byte(`{
  "name": "From JSON",
  "steps": [{"id": "x", "kind": "condition", "order": 0, "condition": {"conditionType": "click"}, "branches": {"yes": "exit"}}]
}`), 0600))

	loaded, err = fp.Template(t.Context(), "json-one")
	require.NoError(t, err)
	assert.Equal(t, "json-one", loaded.ID)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, models.Exit, loaded.Steps[0].Branches[models.OutcomeYes])

	require.Error(t, fp.SaveTemplate(t.Context(), models.Template{ID: "../x"}))
}
