// Package registry defines the step kinds, their fields and per-step payload validation.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/dukex/automations/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrUnknownKind is returned for a step kind outside the closed set.
	ErrUnknownKind = errors.New("unknown step kind")

	// ErrUnknownField is returned when a field does not exist for the step's kind.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidFieldValue is returned when a value cannot be coerced to the field type.
	ErrInvalidFieldValue = errors.New("invalid field value")
)

// headersSchema accepts a flat JSON object of string values.
const headersSchema = `{"type": "object", "additionalProperties": {"type": "string"}}`

// FieldSpec describes one payload field of a kind.
type FieldSpec struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	// RequiredWhen names the discriminator value that makes the field required, e.g. "actionType=webhook".
	RequiredWhen string `json:"requiredWhen,omitempty"`
}

// KindSpec describes a step kind.
type KindSpec struct {
	Kind   models.StepKind `json:"kind"`
	Label  string          `json:"label"`
	Fields []FieldSpec     `json:"fields"`
}

// Field returns the spec of a named field.
func (k KindSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return FieldSpec{}, false
}

// Registry holds the step kind table and the payload validator.
type Registry struct {
	validate *validator.Validate
	headers  *gojsonschema.Schema
	kinds    map[models.StepKind]KindSpec
}

// NewRegistry builds the registry for the four built-in step kinds.
func NewRegistry() *Registry {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	headers, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(headersSchema))
	if err != nil {
		panic(fmt.Errorf("compile headers schema: %w", err))
	}

	r := &Registry{
		validate: v,
		headers:  headers,
		kinds:    make(map[models.StepKind]KindSpec),
	}

	v.RegisterStructValidation(conditionRules, models.ConditionPayload{})
	v.RegisterStructValidation(r.actionRules, models.ActionPayload{})

	r.register(KindSpec{
		Kind:  models.StepKindEmail,
		Label: "Send email",
		Fields: []FieldSpec{
			{Name: "subject", Required: true},
			{Name: "body", Required: true},
		},
	})
	r.register(KindSpec{
		Kind:  models.StepKindDelay,
		Label: "Wait",
		Fields: []FieldSpec{
			{Name: "delayDays"},
			{Name: "delayHours"},
		},
	})
	r.register(KindSpec{
		Kind:  models.StepKindCondition,
		Label: "Condition",
		Fields: []FieldSpec{
			{Name: "conditionType", Required: true},
			{Name: "value", RequiredWhen: "conditionType=custom"},
		},
	})
	r.register(KindSpec{
		Kind:  models.StepKindAction,
		Label: "Action",
		Fields: []FieldSpec{
			{Name: "actionType", Required: true},
			{Name: "value", RequiredWhen: "actionType=tag|notify"},
			{Name: "fieldName", RequiredWhen: "actionType=update"},
			{Name: "fieldValue", RequiredWhen: "actionType=update"},
			{Name: "webhookUrl", RequiredWhen: "actionType=webhook"},
			{Name: "webhookMethod"},
			{Name: "webhookHeaders"},
			{Name: "webhookBody"},
		},
	})

	return r
}

func (r *Registry) register(spec KindSpec) {
	r.kinds[spec.Kind] = spec
}

// Spec returns the kind spec.
func (r *Registry) Spec(kind models.StepKind) (KindSpec, bool) {
	spec, ok := r.kinds[kind]

	return spec, ok
}

// Kinds returns every kind spec in palette order.
func (r *Registry) Kinds() []KindSpec {
	out := make([]KindSpec, 0, len(models.StepKinds))
	for _, k := range models.StepKinds {
		out = append(out, r.kinds[k])
	}

	return out
}

// DefaultStep builds a step of kind with placeholder payload. Id and order are left for the caller.
func (r *Registry) DefaultStep(kind models.StepKind) (models.Step, error) {
	step := models.Step{Kind: kind}

	switch kind {
	case models.StepKindEmail:
		step.Email = &models.EmailPayload{Subject: "New email", Body: "Write your email content here."}
	case models.StepKindDelay:
		step.Delay = &models.DelayPayload{DelayDays: 1}
	case models.StepKindCondition:
		step.Condition = &models.ConditionPayload{ConditionType: models.ConditionTypeOpen}
	case models.StepKindAction:
		step.Action = &models.ActionPayload{ActionType: models.ActionTypeTag, Value: "new-tag"}
	default:
		return models.Step{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	return step, nil
}

// ValidatePayload checks a single step's payload in isolation. No graph context is used.
func (r *Registry) ValidatePayload(step models.Step) []models.FieldError {
	if !step.Kind.IsValid() {
		return []models.FieldError{{
			StepID:  step.ID,
			Field:   "kind",
			Code:    "oneof",
			Message: fmt.Sprintf("unknown step kind %q", step.Kind),
		}}
	}

	var errs []models.FieldError

	for _, other := range foreignPayloads(step) {
		errs = append(errs, models.FieldError{
			StepID:  step.ID,
			Field:   string(other),
			Code:    "excluded",
			Message: fmt.Sprintf("%s payload is not allowed on a %s step", other, step.Kind),
		})
	}

	var err error

	// A missing payload validates as its zero value so required fields are reported.
	switch step.Kind {
	case models.StepKindEmail:
		err = r.validate.Struct(valueOrZero(step.Email))
	case models.StepKindDelay:
		err = r.validate.Struct(valueOrZero(step.Delay))
	case models.StepKindCondition:
		err = r.validate.Struct(valueOrZero(step.Condition))
	case models.StepKindAction:
		err = r.validate.Struct(valueOrZero(step.Action))
	}

	return append(errs, toFieldErrors(step.ID, err)...)
}

// Placeholders lists the contact fields referenced by a webhook body template.
// Placeholders are never resolved here.
func Placeholders(template string) []string {
	var fields []string

	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(fields, m[1]) {
			fields = append(fields, m[1])
		}
	}

	return fields
}

func conditionRules(sl validator.StructLevel) {
	c, _ := sl.Current().Interface().(models.ConditionPayload)

	if c.ConditionType == models.ConditionTypeCustom && strings.TrimSpace(c.Value) == "" {
		sl.ReportError(c.Value, "value", "Value", "required_if", "conditionType custom")
	}
}

func (r *Registry) actionRules(sl validator.StructLevel) {
	a, _ := sl.Current().Interface().(models.ActionPayload)

	switch a.ActionType {
	case models.ActionTypeTag, models.ActionTypeNotify:
		if strings.TrimSpace(a.Value) == "" {
			sl.ReportError(a.Value, "value", "Value", "required_if", "actionType "+a.ActionType)
		}
	case models.ActionTypeUpdate:
		if strings.TrimSpace(a.FieldName) == "" {
			sl.ReportError(a.FieldName, "fieldName", "FieldName", "required_if", "actionType update")
		}

		if strings.TrimSpace(a.FieldValue) == "" {
			sl.ReportError(a.FieldValue, "fieldValue", "FieldValue", "required_if", "actionType update")
		}
	case models.ActionTypeWebhook:
		switch {
		case strings.TrimSpace(a.WebhookURL) == "":
			sl.ReportError(a.WebhookURL, "webhookUrl", "WebhookURL", "required_if", "actionType webhook")
		case sl.Validator().Var(a.WebhookURL, "url") != nil:
			sl.ReportError(a.WebhookURL, "webhookUrl", "WebhookURL", "url", "")
		}

		if !slices.Contains(webhookMethods, a.Method()) {
			sl.ReportError(a.WebhookMethod, "webhookMethod", "WebhookMethod", "oneof", strings.Join(webhookMethods, " "))
		}

		if strings.TrimSpace(a.WebhookHeaders) != "" && !r.validHeaders(a.WebhookHeaders) {
			sl.ReportError(a.WebhookHeaders, "webhookHeaders", "WebhookHeaders", "json_object", "")
		}
	}
}

func (r *Registry) validHeaders(raw string) bool {
	result, err := r.headers.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return false
	}

	return result.Valid()
}

var webhookMethods = []string{
	models.WebhookMethodGet,
	models.WebhookMethodPost,
	models.WebhookMethodPut,
	models.WebhookMethodDelete,
}

func foreignPayloads(step models.Step) []models.StepKind {
	var out []models.StepKind

	if step.Email != nil && step.Kind != models.StepKindEmail {
		out = append(out, models.StepKindEmail)
	}

	if step.Delay != nil && step.Kind != models.StepKindDelay {
		out = append(out, models.StepKindDelay)
	}

	if step.Condition != nil && step.Kind != models.StepKindCondition {
		out = append(out, models.StepKindCondition)
	}

	if step.Action != nil && step.Kind != models.StepKindAction {
		out = append(out, models.StepKindAction)
	}

	return out
}

func valueOrZero[T any](p *T) T {
	if p == nil {
		var zero T

		return zero
	}

	return *p
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}

	return name
}
