package ordering

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/dukex/automations/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear(ids ...string) []models.Step {
	steps := make([]models.Step, 0, len(ids))
	for i, id := range ids {
		steps = append(steps, models.Step{
			ID:    id,
			Kind:  models.StepKindDelay,
			Order: i,
			Delay: &models.DelayPayload{DelayDays: i},
		})
	}

	return steps
}

func idsOf(steps []models.Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.ID)
	}

	return out
}

func TestInsert(t *testing.T) {
	steps := linear("a", "b")

	out := Insert(steps, models.Step{ID: "c", Kind: models.StepKindDelay, Order: 99})

	assert.Equal(t, []string{"a", "b", "c"}, idsOf(out))
	assert.Equal(t, 2, out[2].Order)
	assert.Len(t, steps, 2, "input must not grow")
	assert.True(t, IsContiguous(out))
}

func TestInsert_Empty(t *testing.T) {
	out := Insert(nil, models.Step{ID: "a", Kind: models.StepKindDelay})

	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].Order)
}

func TestDelete(t *testing.T) {
	steps := linear("a", "b", "c", "d")

	out := Delete(steps, "b")

	assert.Equal(t, []string{"a", "c", "d"}, idsOf(out))
	assert.True(t, IsContiguous(out))
	assert.Equal(t, 1, out[1].Order)
	assert.Equal(t, 2, steps[2].Order, "input must keep its numbering")
}

func TestDelete_Last(t *testing.T) {
	out := Delete(linear("a"), "a")

	assert.Empty(t, out)
	assert.True(t, IsContiguous(out))
}

func TestDelete_UnknownID(t *testing.T) {
	steps := linear("a", "b")

	assert.Equal(t, steps, Delete(steps, "zzz"))
}

func TestDuplicate(t *testing.T) {
	steps := []models.Step{
		{ID: "mail", Kind: models.StepKindEmail, Name: "Welcome", Order: 0, Email: &models.EmailPayload{Subject: "Hi", Body: "Hello"}},
		{
			ID: "cond", Kind: models.StepKindCondition, Order: 1,
			Condition: &models.ConditionPayload{ConditionType: "open"},
			Branches:  models.Branches{models.OutcomeYes: "mail"},
		},
	}

	out := Duplicate(steps, "mail", "mail-2")
	require.Len(t, out, 3)

	clone := out[2]
	assert.Equal(t, "mail-2", clone.ID)
	assert.Equal(t, 2, clone.Order)
	assert.Equal(t, "Welcome (Copy)", clone.Name)
	assert.Equal(t, "Hi (Copy)", clone.Email.Subject)
	assert.Equal(t, "Hello", clone.Email.Body)

	clone.Email.Body = "changed"
	assert.Equal(t, "Hello", out[0].Email.Body, "clone must not share payload with original")

	condCopy := Duplicate(steps, "cond", "cond-2")[2]
	assert.Empty(t, condCopy.Branches)
	assert.Equal(t, "open", condCopy.Condition.ConditionType)
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		to       int
		expected []string
	}{
		{name: "forward", id: "a", to: 2, expected: []string{"b", "c", "a", "d"}},
		{name: "backward", id: "d", to: 0, expected: []string{"d", "a", "b", "c"}},
		{name: "clamped high", id: "b", to: 42, expected: []string{"a", "c", "d", "b"}},
		{name: "clamped low", id: "c", to: -3, expected: []string{"c", "a", "b", "d"}},
		{name: "same index", id: "b", to: 1, expected: []string{"a", "b", "c", "d"}},
		{name: "unknown id", id: "x", to: 0, expected: []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Move(linear("a", "b", "c", "d"), tt.id, tt.to)

			assert.Equal(t, tt.expected, idsOf(out))
			assert.True(t, IsContiguous(out))

			for i, s := range out {
				assert.Equal(t, i, s.Order)
			}
		})
	}
}

func TestMove_Idempotent(t *testing.T) {
	steps := linear("a", "b", "c")

	for _, s := range steps {
		assert.Equal(t, steps, Move(steps, s.ID, IndexOf(steps, s.ID)))
	}
}

func TestIsContiguous(t *testing.T) {
	assert.True(t, IsContiguous(nil))
	assert.True(t, IsContiguous(linear("a", "b")))

	gap := linear("a", "b")
	gap[1].Order = 2
	assert.False(t, IsContiguous(gap))

	dup := linear("a", "b")
	dup[1].Order = 0
	assert.False(t, IsContiguous(dup))
}

func TestNormalize(t *testing.T) {
	steps := []models.Step{{ID: "b", Order: 7}, {ID: "a", Order: 3}, {ID: "c", Order: 9}}

	out := Normalize(steps)

	assert.Equal(t, []string{"a", "b", "c"}, idsOf(out))
	assert.True(t, IsContiguous(out))
}

func TestOperations_KeepOrderContiguous(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	steps := linear("s0")
	next := 1

	for range 2000 {
		switch rng.IntN(4) {
		case 0:
			steps = Insert(steps, models.Step{ID: fmt.Sprintf("s%d", next), Kind: models.StepKindDelay})
			next++
		case 1:
			if len(steps) > 1 {
				steps = Delete(steps, steps[rng.IntN(len(steps))].ID)
			}
		case 2:
			steps = Duplicate(steps, steps[rng.IntN(len(steps))].ID, fmt.Sprintf("s%d", next))
			next++
		case 3:
			steps = Move(steps, steps[rng.IntN(len(steps))].ID, rng.IntN(len(steps)+4)-2)
		}

		orders := make([]int, 0, len(steps))
		for _, s := range steps {
			orders = append(orders, s.Order)
		}

		slices.Sort(orders)

		for i, o := range orders {
			require.Equal(t, i, o)
		}
	}
}
