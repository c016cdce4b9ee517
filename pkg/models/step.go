// Package models defines the automation workflow definition: steps, branches and triggers.
package models

import "strings"

// StepKind identifies the payload variant carried by a step.
type StepKind string

const (
	StepKindEmail     StepKind = "email"
	StepKindDelay     StepKind = "delay"
	StepKindCondition StepKind = "condition"
	StepKindAction    StepKind = "action"
)

// StepKinds lists every supported step kind in palette order.
var StepKinds = []StepKind{StepKindEmail, StepKindDelay, StepKindCondition, StepKindAction}

// IsValid checks if the step kind is one of the closed set.
func (k StepKind) IsValid() bool {
	switch k {
	case StepKindEmail, StepKindDelay, StepKindCondition, StepKindAction:
		return true
	default:
		return false
	}
}

// ProvisionalIDPrefix marks ids generated client-side before the first save.
const ProvisionalIDPrefix = "temp_"

// IsProvisionalID reports whether id was generated before the definition was persisted.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalIDPrefix)
}

// Condition types.
const (
	ConditionTypeOpen   = "open"
	ConditionTypeClick  = "click"
	ConditionTypeCustom = "custom"
)

// Action types.
const (
	ActionTypeTag     = "tag"
	ActionTypeNotify  = "notify"
	ActionTypeUpdate  = "update"
	ActionTypeWebhook = "webhook"
)

// Webhook methods.
const (
	WebhookMethodGet    = "GET"
	WebhookMethodPost   = "POST"
	WebhookMethodPut    = "PUT"
	WebhookMethodDelete = "DELETE"
)

// EmailPayload is the content of an email step.
type EmailPayload struct {
	Subject string `json:"subject" yaml:"subject" validate:"required"`
	Body    string `json:"body"    yaml:"body"    validate:"required"`
}

// DelayPayload holds a wait duration. Both fields zero means "immediately".
type DelayPayload struct {
	DelayDays  int `json:"delayDays"  yaml:"delayDays"  validate:"gte=0"`
	DelayHours int `json:"delayHours" yaml:"delayHours" validate:"gte=0,lte=23"`
}

// ConditionPayload describes what a condition step checks. Value is required for custom conditions.
type ConditionPayload struct {
	ConditionType string `json:"conditionType"   yaml:"conditionType"   validate:"required,oneof=open click custom"`
	Value         string `json:"value,omitempty" yaml:"value,omitempty"`
}

// ActionPayload describes a side effect on the contact. Which fields are
// required depends on ActionType.
type ActionPayload struct {
	ActionType     string `json:"actionType"               yaml:"actionType"               validate:"required,oneof=tag notify update webhook"`
	Value          string `json:"value,omitempty"          yaml:"value,omitempty"`
	FieldName      string `json:"fieldName,omitempty"      yaml:"fieldName,omitempty"`
	FieldValue     string `json:"fieldValue,omitempty"     yaml:"fieldValue,omitempty"`
	WebhookURL     string `json:"webhookUrl,omitempty"     yaml:"webhookUrl,omitempty"`
	WebhookMethod  string `json:"webhookMethod,omitempty"  yaml:"webhookMethod,omitempty"`
	WebhookHeaders string `json:"webhookHeaders,omitempty" yaml:"webhookHeaders,omitempty"` // raw JSON object text
	WebhookBody    string `json:"webhookBody,omitempty"    yaml:"webhookBody,omitempty"`    // may contain {{contact.field}}
}

// Method returns the effective HTTP method, POST when unset.
func (a *ActionPayload) Method() string {
	if a.WebhookMethod == "" {
		return WebhookMethodPost
	}

	return strings.ToUpper(a.WebhookMethod)
}

// Step is one node of the workflow graph. Exactly one payload pointer is set,
// the one matching Kind.
type Step struct {
	ID        string            `json:"id"                  yaml:"id"`
	Kind      StepKind          `json:"kind"                yaml:"kind"`
	Name      string            `json:"name,omitempty"      yaml:"name,omitempty"`
	Order     int               `json:"order"               yaml:"order"`
	Email     *EmailPayload     `json:"email,omitempty"     yaml:"email,omitempty"`
	Delay     *DelayPayload     `json:"delay,omitempty"     yaml:"delay,omitempty"`
	Condition *ConditionPayload `json:"condition,omitempty" yaml:"condition,omitempty"`
	Action    *ActionPayload    `json:"action,omitempty"    yaml:"action,omitempty"`
	Branches  Branches          `json:"branches,omitempty"  yaml:"branches,omitempty"`
}

// IsCondition reports whether the step can branch.
func (s *Step) IsCondition() bool {
	return s.Kind == StepKindCondition
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s Step) Clone() Step {
	c := s

	if s.Email != nil {
		e := *s.Email
		c.Email = &e
	}

	if s.Delay != nil {
		d := *s.Delay
		c.Delay = &d
	}

	if s.Condition != nil {
		cond := *s.Condition
		c.Condition = &cond
	}

	if s.Action != nil {
		a := *s.Action
		c.Action = &a
	}

	c.Branches = s.Branches.Clone()

	return c
}

// CloneSteps deep-copies a step slice.
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}

	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}

	return out
}

// FindStep returns the index of the step with id, or -1.
func FindStep(steps []Step, id string) int {
	for i := range steps {
		if steps[i].ID == id {
			return i
		}
	}

	return -1
}
