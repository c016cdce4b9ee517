// Package runtime defines the contract of the external step evaluation runtime.
package runtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dukex/automations/pkg/models"
)

// ErrRuntimeUnavailable indicates the runtime could not be reached or failed to answer.
var ErrRuntimeUnavailable = errors.New("step runtime unavailable")

// TestRequest asks the runtime to evaluate one persisted step against a sample contact.
type TestRequest struct {
	AutomationID  string          `json:"automationId"`
	StepID        string          `json:"stepId"`
	Step          models.Step     `json:"step"`
	SampleContact json.RawMessage `json:"sampleContact"`
}

// TestResult is the runtime's answer. Result is opaque to this module.
type TestResult struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message"`
	Error   string          `json:"error,omitempty"`
}

// Tester evaluates steps. Calls are independent and may run concurrently.
type Tester interface {
	TestStep(ctx context.Context, req TestRequest) (TestResult, error)
}

// TesterFunc adapts a function to Tester.
type TesterFunc func(ctx context.Context, req TestRequest) (TestResult, error)

// TestStep calls f.
func (f TesterFunc) TestStep(ctx context.Context, req TestRequest) (TestResult, error) {
	return f(ctx, req)
}
