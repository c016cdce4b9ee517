package models

import (
	"maps"
	"slices"
)

// Outcome is a condition step result.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Outcomes lists the outcomes a condition step can branch on.
var Outcomes = []Outcome{OutcomeYes, OutcomeNo}

// IsValid checks the outcome is yes or no.
func (o Outcome) IsValid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Target is either a step id or Exit.
type Target string

// Exit ends the workflow for the contact.
const Exit Target = "exit"

// IsExit reports whether the target is the exit sentinel.
func (t Target) IsExit() bool {
	return t == Exit
}

// Branches maps a condition outcome to an explicit target. An absent key
// falls through to the next step in order, or Exit when there is none.
type Branches map[Outcome]Target

// Clone copies the map; a nil map stays nil.
func (b Branches) Clone() Branches {
	if b == nil {
		return nil
	}

	return maps.Clone(b)
}

// Keys returns the outcomes set on the map in a stable order.
func (b Branches) Keys() []Outcome {
	keys := slices.Collect(maps.Keys(b))
	slices.Sort(keys)

	return keys
}

// Resolution holds the resolved target for each outcome of a condition step.
type Resolution struct {
	Yes Target `json:"yes"`
	No  Target `json:"no"`
}

// For returns the target resolved for outcome.
func (r Resolution) For(o Outcome) Target {
	if o == OutcomeNo {
		return r.No
	}

	return r.Yes
}
