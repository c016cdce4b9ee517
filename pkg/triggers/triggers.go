// Package triggers validates the triggers attached to a workflow and previews their schedules.
package triggers

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/dukex/automations/pkg/models"
	"github.com/go-playground/validator/v10"
)

// ErrUnknownKind is returned for a trigger kind outside the supported set.
var ErrUnknownKind = errors.New("unknown trigger kind")

// DefaultScheduleTime is the time of day a new scheduled trigger fires at.
const DefaultScheduleTime = "09:00"

type scheduleConfig struct {
	Frequency string   `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Time      string   `json:"time"      validate:"required,clock"`
	Days      []string `json:"days"      validate:"dive,weekday"`
}

type eventConfig struct {
	EventType string `json:"eventType" validate:"required"`
}

type formConfig struct {
	FormID string `json:"formId" validate:"required"`
}

type apiConfig struct {
	WebhookKey string `json:"webhookKey" validate:"required,webhook_key"`
}

// Validator checks a single trigger's kind-specific configuration. The
// workflow-level "at least one trigger" rule is not its concern.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a trigger validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")

		return name
	})

	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return slices.Contains(models.Weekdays, fl.Field().String())
	})
	_ = v.RegisterValidation("webhook_key", func(fl validator.FieldLevel) bool {
		return IsWebhookKey(fl.Field().String())
	})

	v.RegisterStructValidation(weeklyNeedsDays, scheduleConfig{})

	return &Validator{validate: v}
}

// Validate returns the field errors of a trigger.
func (v *Validator) Validate(trigger models.Trigger) []models.FieldError {
	c := trigger.Config

	var err error

	switch trigger.Kind {
	case models.TriggerKindManual:
		return nil
	case models.TriggerKindScheduled:
		err = v.validate.Struct(scheduleConfig{
			Frequency: c.Frequency,
			Time:      c.Time,
			Days:      normalizeDays(c.Days),
		})
	case models.TriggerKindEvent:
		err = v.validate.Struct(eventConfig{EventType: strings.TrimSpace(c.EventType)})
	case models.TriggerKindFormSubmission:
		err = v.validate.Struct(formConfig{FormID: strings.TrimSpace(c.FormID)})
	case models.TriggerKindAPI:
		err = v.validate.Struct(apiConfig{WebhookKey: c.WebhookKey})
	default:
		return []models.FieldError{{
			Field:   "kind",
			Code:    "oneof",
			Message: fmt.Sprintf("unknown trigger kind %q", trigger.Kind),
		}}
	}

	return toFieldErrors(err)
}

// Default builds a trigger of kind with a usable starting configuration.
func Default(kind models.TriggerKind) (models.Trigger, error) {
	t := models.Trigger{Kind: kind}

	switch kind {
	case models.TriggerKindManual, models.TriggerKindEvent, models.TriggerKindFormSubmission:
	case models.TriggerKindScheduled:
		t.Config.Frequency = models.FrequencyDaily
		t.Config.Time = DefaultScheduleTime
	case models.TriggerKindAPI:
		t.Config.WebhookKey = NewWebhookKey()
	default:
		return models.Trigger{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	return t, nil
}

// Apply overlays a patch on a trigger. Changing the kind starts over from
// that kind's default configuration; the webhook key is never patchable.
func Apply(trigger models.Trigger, patch models.TriggerPatch) (models.Trigger, error) {
	out := trigger.Clone()

	if patch.Kind != nil && *patch.Kind != trigger.Kind {
		fresh, err := Default(*patch.Kind)
		if err != nil {
			return trigger, err
		}

		out = fresh
	}

	if patch.Frequency != nil {
		out.Config.Frequency = *patch.Frequency
	}

	if patch.Time != nil {
		out.Config.Time = *patch.Time
	}

	if patch.Days != nil {
		out.Config.Days = slices.Clone(patch.Days)
	}

	if patch.EventType != nil {
		out.Config.EventType = *patch.EventType
	}

	if patch.FormID != nil {
		out.Config.FormID = *patch.FormID
	}

	return out, nil
}

// IsClock reports whether s is a 24h HH:MM time.
func IsClock(s string) bool {
	if len(s) != len("15:04") {
		return false
	}

	_, err := time.Parse("15:04", s)

	return err == nil
}

func weeklyNeedsDays(sl validator.StructLevel) {
	c, _ := sl.Current().Interface().(scheduleConfig)

	if c.Frequency == models.FrequencyWeekly && len(c.Days) == 0 {
		sl.ReportError(c.Days, "days", "Days", "required_if", "frequency weekly")
	}
}

func normalizeDays(days []string) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strings.ToLower(strings.TrimSpace(d)))
	}

	return out
}

func toFieldErrors(err error) []models.FieldError {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []models.FieldError{{Field: "config", Code: "invalid", Message: err.Error()}}
	}

	out := make([]models.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Field()
		// dive reports days[2]; keep the field name stable.
		if strings.HasPrefix(field, "days[") {
			field = "days"
		}

		out = append(out, models.FieldError{
			Field:   field,
			Code:    fe.Tag(),
			Message: message(fe.Tag(), fe.Param()),
		})
	}

	return out
}

func message(tag, param string) string {
	switch tag {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + param
	case "clock":
		return "must be a time formatted HH:MM"
	case "weekday":
		return "must be one of: " + strings.Join(models.Weekdays, ", ")
	case "webhook_key":
		return "must be a generated webhook key"
	default:
		return fmt.Sprintf("failed %s validation", tag)
	}
}
