// Package ordering keeps a step list's order values contiguous and zero-based
// across structural edits. Every function is pure: the input slice is never
// modified and a fresh slice is returned.
package ordering

import (
	"slices"

	"github.com/dukex/automations/pkg/models"
)

// CopySuffix is appended to the human-readable fields of a duplicated step.
const CopySuffix = " (Copy)"

// Insert appends step at the end of the sequence.
func Insert(steps []models.Step, step models.Step) []models.Step {
	out := Sorted(steps)

	s := step.Clone()
	s.Order = len(out)

	return append(out, s)
}

// Delete removes the step with id and renumbers the rest by their previous
// relative order. It is agnostic to minimum length.
func Delete(steps []models.Step, id string) []models.Step {
	out := Sorted(steps)

	i := models.FindStep(out, id)
	if i < 0 {
		return out
	}

	return renumber(slices.Delete(out, i, i+1))
}

// Duplicate appends a copy of the step with id under newID. The copy keeps the
// payload but not the branches.
func Duplicate(steps []models.Step, id, newID string) []models.Step {
	out := Sorted(steps)

	i := models.FindStep(out, id)
	if i < 0 {
		return out
	}

	clone := out[i].Clone()
	clone.ID = newID
	clone.Order = len(out)
	clone.Branches = nil

	if clone.Name != "" {
		clone.Name += CopySuffix
	}

	if clone.Email != nil {
		clone.Email.Subject += CopySuffix
	}

	return append(out, clone)
}

// Move repositions the step with id at toIndex, clamped to the list bounds,
// and renumbers every step by its new position. Moving a step to its current
// index leaves the list unchanged.
func Move(steps []models.Step, id string, toIndex int) []models.Step {
	out := Sorted(steps)

	from := models.FindStep(out, id)
	if from < 0 {
		return out
	}

	to := max(0, min(toIndex, len(out)-1))
	if to == from {
		return out
	}

	step := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, step)

	return renumber(out)
}

// IndexOf returns the position of the step with id in the ordered sequence, or -1.
func IndexOf(steps []models.Step, id string) int {
	for _, s := range steps {
		if s.ID == id {
			return s.Order
		}
	}

	return -1
}

// IsContiguous reports whether order values are exactly {0 … N-1}, each used once.
func IsContiguous(steps []models.Step) bool {
	seen := make([]bool, len(steps))

	for _, s := range steps {
		if s.Order < 0 || s.Order >= len(steps) || seen[s.Order] {
			return false
		}

		seen[s.Order] = true
	}

	return true
}

// Sorted returns a deep copy of steps stably sorted by order.
func Sorted(steps []models.Step) []models.Step {
	out := models.CloneSteps(steps)
	if out == nil {
		out = []models.Step{}
	}

	slices.SortStableFunc(out, func(a, b models.Step) int {
		return a.Order - b.Order
	})

	return out
}

// Normalize sorts by order and renumbers to a contiguous sequence.
func Normalize(steps []models.Step) []models.Step {
	return renumber(Sorted(steps))
}

func renumber(steps []models.Step) []models.Step {
	for i := range steps {
		steps[i].Order = i
	}

	return steps
}
