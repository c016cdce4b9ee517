package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		err := persistence.NewAutomationError("AutomationByID", "a-123", persistence.ErrAutomationNotFound)

		assert.True(t, persistence.IsAutomationNotFound(err))
		assert.False(t, persistence.IsTemplateNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrAutomationNotFound))
	})

	t.Run("automation error contains context", func(t *testing.T) {
		err := persistence.NewAutomationError("Update", "a-123", persistence.ErrAutomationNotFound)

		assert.Contains(t, err.Error(), "Update")
		assert.Contains(t, err.Error(), "a-123")
		assert.Contains(t, err.Error(), "automation not found")

		err = persistence.NewAutomationError("Create", "", persistence.ErrUnavailable)
		assert.Contains(t, err.Error(), "(new)")
		assert.True(t, persistence.IsUnavailable(err))
	})
}

func TestAssignPermanentIDs(t *testing.T) {
	t.Parallel()

	def := models.WorkflowDefinition{
		Steps: []models.Step{
			{ID: "temp_a", Kind: models.StepKindEmail, Order: 0},
			{ID: "kept", Kind: models.StepKindDelay, Order: 1},
			{
				ID: "temp_c", Kind: models.StepKindCondition, Order: 2,
				Branches: models.Branches{models.OutcomeYes: "temp_a", models.OutcomeNo: "kept"},
			},
		},
	}

	out, mappings := persistence.AssignPermanentIDs(def)

	require.Len(t, mappings, 3)
	assert.Equal(t, "temp_a", mappings[0].TempID)
	assert.NotEqual(t, "temp_a", mappings[0].PermanentID)
	assert.Equal(t, models.IDMapping{TempID: "kept", PermanentID: "kept"}, mappings[1])

	assert.Equal(t, mappings[0].PermanentID, out.Steps[0].ID)
	assert.Equal(t, "kept", out.Steps[1].ID)
	assert.Equal(t, models.Target(mappings[0].PermanentID), out.Steps[2].Branches[models.OutcomeYes])
	assert.Equal(t, models.Target("kept"), out.Steps[2].Branches[models.OutcomeNo])
	assert.Equal(t, "temp_a", def.Steps[0].ID)
}
