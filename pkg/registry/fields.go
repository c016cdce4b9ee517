package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dukex/automations/pkg/models"
	"github.com/spf13/cast"
)

// SetField assigns a single payload field and returns the updated copy of
// step. It never validates: it is meant to run on every keystroke.
func (r *Registry) SetField(step models.Step, field string, value any) (models.Step, error) {
	out := step.Clone()

	if field == "name" {
		s, err := cast.ToStringE(value)
		if err != nil {
			return step, fieldValueError(field, value, err)
		}

		out.Name = s

		return out, nil
	}

	spec, ok := r.kinds[step.Kind]
	if !ok {
		return step, fmt.Errorf("%w: %s", ErrUnknownKind, step.Kind)
	}

	if _, ok := spec.Field(field); !ok {
		return step, fmt.Errorf("%w: %s on %s step", ErrUnknownField, field, step.Kind)
	}

	var err error

	switch step.Kind {
	case models.StepKindEmail:
		err = setEmailField(&out, field, value)
	case models.StepKindDelay:
		err = setDelayField(&out, field, value)
	case models.StepKindCondition:
		err = setConditionField(&out, field, value)
	case models.StepKindAction:
		err = setActionField(&out, field, value)
	}

	if err != nil {
		return step, fieldValueError(field, value, err)
	}

	return out, nil
}

func setEmailField(step *models.Step, field string, value any) error {
	if step.Email == nil {
		step.Email = &models.EmailPayload{}
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return err
	}

	switch field {
	case "subject":
		step.Email.Subject = s
	case "body":
		step.Email.Body = s
	}

	return nil
}

func setDelayField(step *models.Step, field string, value any) error {
	if step.Delay == nil {
		step.Delay = &models.DelayPayload{}
	}

	// Blank input clears the field back to its default.
	n := 0

	if s, ok := value.(string); !ok || s != "" {
		var err error

		n, err = wholeNumber(value)
		if err != nil {
			return err
		}
	}

	switch field {
	case "delayDays":
		step.Delay.DelayDays = n
	case "delayHours":
		step.Delay.DelayHours = n
	}

	return nil
}

// wholeNumber reads strings as base-10 integers and rejects fractional numbers.
func wholeNumber(value any) (int, error) {
	if s, ok := value.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}

	f, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, err
	}

	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", value)
	}

	return int(f), nil
}

func setConditionField(step *models.Step, field string, value any) error {
	if step.Condition == nil {
		step.Condition = &models.ConditionPayload{}
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return err
	}

	switch field {
	case "conditionType":
		step.Condition.ConditionType = s
	case "value":
		step.Condition.Value = s
	}

	return nil
}

func setActionField(step *models.Step, field string, value any) error {
	if step.Action == nil {
		step.Action = &models.ActionPayload{}
	}

	if field == "webhookHeaders" {
		raw, err := headersText(value)
		if err != nil {
			return err
		}

		step.Action.WebhookHeaders = raw

		return nil
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return err
	}

	a := step.Action

	switch field {
	case "actionType":
		a.ActionType = s
	case "value":
		a.Value = s
	case "fieldName":
		a.FieldName = s
	case "fieldValue":
		a.FieldValue = s
	case "webhookUrl":
		a.WebhookURL = s
	case "webhookMethod":
		a.WebhookMethod = s
	case "webhookBody":
		a.WebhookBody = s
	}

	return nil
}

// headersText keeps raw text as typed and serializes structured headers to JSON.
func headersText(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case map[string]string, map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}

		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported headers type %T", value)
	}
}

func fieldValueError(field string, value any, err error) error {
	return fmt.Errorf("%w: %s=%v: %v", ErrInvalidFieldValue, field, value, err)
}
