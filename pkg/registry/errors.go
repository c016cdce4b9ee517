package registry

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dukex/automations/pkg/models"
	"github.com/go-playground/validator/v10"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*contact\.([A-Za-z0-9_]+)\s*\}\}`)

// toFieldErrors converts validator output into field errors attached to stepID.
func toFieldErrors(stepID string, err error) []models.FieldError {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []models.FieldError{{StepID: stepID, Field: "payload", Code: "invalid", Message: err.Error()}}
	}

	out := make([]models.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		out = append(out, models.FieldError{
			StepID:  stepID,
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: Message(fe.Tag(), fe.Param()),
		})
	}

	return out
}

// Message renders a human-readable message for a validation tag.
func Message(tag, param string) string {
	switch tag {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + param
	case "gte":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	case "url":
		return "must be a valid absolute URL"
	case "json_object":
		return "must be a JSON object with string values"
	default:
		return fmt.Sprintf("failed %s validation", tag)
	}
}
