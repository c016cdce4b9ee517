package otelhelper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(t.Context(), tracer, "automation.save", attribute.String(AutomationIDKey, "a-1"))
	SetError(span, errors.New("boom"), attribute.String(OperationKey, "create"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	assert.Equal(t, "automation.save", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Contains(t, ended[0].Attributes(), attribute.String(AutomationIDKey, "a-1"))

	var names []string
	for _, e := range ended[0].Events() {
		names = append(names, e.Name)
	}

	assert.Contains(t, names, "error_occurred")
}

type codedError struct{ code string }

func (e codedError) Error() string     { return "coded failure" }
func (e codedError) ErrorCode() string { return e.code }

func TestSetError_RecordsErrorCode(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := StartSpan(t.Context(), provider.Tracer("test"), "automation.test_step")
	SetError(span, fmt.Errorf("wrapped: %w", codedError{code: "invalid_sample"}))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	assert.Contains(t, ended[0].Attributes(), attribute.String(ErrorCodeKey, "invalid_sample"))

	var found bool

	for _, e := range ended[0].Events() {
		if e.Name == "error_occurred" {
			found = assert.Contains(t, e.Attributes, attribute.String(ErrorCodeKey, "invalid_sample"))
		}
	}

	assert.True(t, found)

	_, plain := StartSpan(t.Context(), provider.Tracer("test"), "plain")
	SetError(plain, errors.New("boom"))
	plain.End()

	for _, kv := range recorder.Ended()[1].Attributes() {
		assert.NotEqual(t, attribute.Key(ErrorCodeKey), kv.Key)
	}
}

func TestNoopTracer(t *testing.T) {
	_, span := StartSpan(t.Context(), NoopTracer(), "noop")
	defer span.End()

	assert.False(t, span.IsRecording())
}
