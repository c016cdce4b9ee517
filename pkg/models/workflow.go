package models

// WorkflowDefinition is the aggregate root handed to the persistence API and
// the step tester. It is treated as an immutable value: every mutation
// returns a new definition.
type WorkflowDefinition struct {
	ID          string    `json:"id,omitempty"          yaml:"id,omitempty"`
	Name        string    `json:"name"                  yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step    `json:"steps"                 yaml:"steps"`
	Triggers    []Trigger `json:"triggers"              yaml:"triggers"`
}

// IsPersisted reports whether the definition has been created by the persistence API.
func (d WorkflowDefinition) IsPersisted() bool {
	return d.ID != ""
}

// Clone deep-copies the definition.
func (d WorkflowDefinition) Clone() WorkflowDefinition {
	out := d
	out.Steps = CloneSteps(d.Steps)

	if d.Triggers != nil {
		out.Triggers = make([]Trigger, len(d.Triggers))
		for i, t := range d.Triggers {
			out.Triggers[i] = t.Clone()
		}
	}

	return out
}

// Step returns the step with id.
func (d WorkflowDefinition) Step(id string) (Step, bool) {
	i := FindStep(d.Steps, id)
	if i < 0 {
		return Step{}, false
	}

	return d.Steps[i], true
}

// Template seeds a brand-new definition. Step ids are template-local and are
// replaced with provisional ids when a definition is seeded.
type Template struct {
	ID          string `json:"id"                    yaml:"id"`
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps"                 yaml:"steps"`
}

// IDMapping pairs a provisional step id with the permanent id assigned on create.
type IDMapping struct {
	TempID      string `json:"tempId"`
	PermanentID string `json:"permanentId"`
}
