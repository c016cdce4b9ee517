// Package branching resolves and validates the edges of condition steps.
//
// A condition step's outcome resolves in three tiers: the explicit target in
// its branches map, else the step that follows it in order, else exit.
package branching

import (
	"errors"
	"fmt"

	"github.com/dukex/automations/pkg/models"
)

var (
	// ErrNotCondition is returned when resolving a step that cannot branch.
	ErrNotCondition = errors.New("step is not a condition")

	// ErrStepNotFound is returned when a step id is not part of the list.
	ErrStepNotFound = errors.New("step not found")
)

// Resolve computes the target of each outcome of a condition step.
func Resolve(step models.Step, steps []models.Step) (models.Resolution, error) {
	if !step.IsCondition() {
		return models.Resolution{}, fmt.Errorf("%w: %s is %s", ErrNotCondition, step.ID, step.Kind)
	}

	next := models.Exit
	if s, ok := stepAtOrder(steps, step.Order+1); ok {
		next = models.Target(s.ID)
	}

	resolve := func(o models.Outcome) models.Target {
		if t, ok := step.Branches[o]; ok && t != "" {
			return t
		}

		return next
	}

	return models.Resolution{
		Yes: resolve(models.OutcomeYes),
		No:  resolve(models.OutcomeNo),
	}, nil
}

// ResolveByID looks the step up by id and resolves it.
func ResolveByID(steps []models.Step, id string) (models.Resolution, error) {
	i := models.FindStep(steps, id)
	if i < 0 {
		return models.Resolution{}, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	return Resolve(steps[i], steps)
}

// CheckTarget reports why target cannot be an outcome of the step fromID.
// It returns nil for Exit and for any other existing step.
func CheckTarget(steps []models.Step, fromID string, target models.Target) *models.StructuralError {
	switch {
	case target.IsExit():
		return nil
	case string(target) == fromID:
		return &models.StructuralError{
			StepID:  fromID,
			Target:  target,
			Code:    models.StructuralSelfLoop,
			Message: "a condition cannot branch to itself",
		}
	case models.FindStep(steps, string(target)) < 0:
		return &models.StructuralError{
			StepID:  fromID,
			Target:  target,
			Code:    models.StructuralDanglingReference,
			Message: fmt.Sprintf("branch target %s does not exist", target),
		}
	default:
		return nil
	}
}

// Validate reports every blocking structural problem in the branch maps.
func Validate(steps []models.Step) []models.StructuralError {
	var errs []models.StructuralError

	for _, step := range steps {
		if len(step.Branches) == 0 {
			continue
		}

		if !step.IsCondition() {
			errs = append(errs, models.StructuralError{
				StepID:  step.ID,
				Code:    models.StructuralNonCondition,
				Message: fmt.Sprintf("%s steps cannot branch", step.Kind),
			})

			continue
		}

		for _, outcome := range step.Branches.Keys() {
			target := step.Branches[outcome]

			if !outcome.IsValid() {
				errs = append(errs, models.StructuralError{
					StepID:  step.ID,
					Outcome: outcome,
					Target:  target,
					Code:    models.StructuralUnknownOutcome,
					Message: fmt.Sprintf("unknown outcome %q", outcome),
				})

				continue
			}

			// An empty target is stored absence: it falls through.
			if target == "" {
				continue
			}

			if e := CheckTarget(steps, step.ID, target); e != nil {
				e.Outcome = outcome
				errs = append(errs, *e)
			}
		}
	}

	return errs
}

// ClearTarget drops every branch entry that points at removedID so the
// outcome falls through again. The input is not modified.
func ClearTarget(steps []models.Step, removedID string) []models.Step {
	out := models.CloneSteps(steps)

	for i := range out {
		for outcome, target := range out[i].Branches {
			if string(target) == removedID {
				delete(out[i].Branches, outcome)
			}
		}

		if len(out[i].Branches) == 0 {
			out[i].Branches = nil
		}
	}

	return out
}

// RemapTargets rewrites branch targets found in idMap. The input is not modified.
func RemapTargets(steps []models.Step, idMap map[string]string) []models.Step {
	out := models.CloneSteps(steps)

	for i := range out {
		for outcome, target := range out[i].Branches {
			if permanent, ok := idMap[string(target)]; ok {
				out[i].Branches[outcome] = models.Target(permanent)
			}
		}
	}

	return out
}

// Unreachable returns advisory warnings for steps past the first that no
// branch resolves to and that do not follow an unconditional step. The check
// is one hop deep; loop and reachability semantics belong to the runtime.
func Unreachable(steps []models.Step) []models.Warning {
	reached := make(map[string]bool, len(steps))

	for _, step := range steps {
		if !step.IsCondition() {
			if next, ok := stepAtOrder(steps, step.Order+1); ok {
				reached[next.ID] = true
			}

			continue
		}

		res, err := Resolve(step, steps)
		if err != nil {
			continue
		}

		for _, t := range []models.Target{res.Yes, res.No} {
			if !t.IsExit() {
				reached[string(t)] = true
			}
		}
	}

	var warnings []models.Warning

	for _, step := range steps {
		if step.Order == 0 || reached[step.ID] {
			continue
		}

		warnings = append(warnings, models.Warning{
			StepID:  step.ID,
			Code:    models.WarningUnreachable,
			Message: "no branch or preceding step leads here",
		})
	}

	return warnings
}

func stepAtOrder(steps []models.Step, order int) (models.Step, bool) {
	for _, s := range steps {
		if s.Order == order {
			return s, true
		}
	}

	return models.Step{}, false
}
