package models

import "slices"

// TriggerKind identifies what starts the workflow for a contact.
type TriggerKind string

const (
	TriggerKindManual         TriggerKind = "manual"
	TriggerKindScheduled      TriggerKind = "scheduled"
	TriggerKindEvent          TriggerKind = "event"
	TriggerKindFormSubmission TriggerKind = "form_submission"
	TriggerKindAPI            TriggerKind = "api_trigger"
)

// TriggerKinds lists every supported trigger kind.
var TriggerKinds = []TriggerKind{
	TriggerKindManual,
	TriggerKindScheduled,
	TriggerKindEvent,
	TriggerKindFormSubmission,
	TriggerKindAPI,
}

// IsValid checks if the trigger kind is supported.
func (k TriggerKind) IsValid() bool {
	return slices.Contains(TriggerKinds, k)
}

// Schedule frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Weekdays are the accepted day names for weekly schedules, Sunday first.
var Weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// TriggerConfig carries the kind-specific trigger settings. Only the fields
// relevant to the owning trigger's kind are read.
type TriggerConfig struct {
	// scheduled
	Frequency string   `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Time      string   `json:"time,omitempty"      yaml:"time,omitempty"` // HH:MM, 24h
	Days      []string `json:"days,omitempty"      yaml:"days,omitempty"`

	// event
	EventType string `json:"eventType,omitempty" yaml:"eventType,omitempty"`

	// form_submission
	FormID string `json:"formId,omitempty" yaml:"formId,omitempty"`

	// api_trigger, generated
	WebhookKey string `json:"webhookKey,omitempty" yaml:"webhookKey,omitempty"`
}

// Clone copies the config including the days slice.
func (c TriggerConfig) Clone() TriggerConfig {
	out := c
	out.Days = slices.Clone(c.Days)

	return out
}

// Trigger starts a workflow instance for a contact.
type Trigger struct {
	Kind   TriggerKind   `json:"kind"   yaml:"kind"`
	Config TriggerConfig `json:"config" yaml:"config"`
}

// Clone deep-copies the trigger.
func (t Trigger) Clone() Trigger {
	return Trigger{Kind: t.Kind, Config: t.Config.Clone()}
}

// TriggerPatch is a partial update of a trigger. Nil fields are left untouched.
type TriggerPatch struct {
	Kind      *TriggerKind `json:"kind,omitempty"`
	Frequency *string      `json:"frequency,omitempty"`
	Time      *string      `json:"time,omitempty"`
	Days      []string     `json:"days,omitempty"`
	EventType *string      `json:"eventType,omitempty"`
	FormID    *string      `json:"formId,omitempty"`
}
