package otelhelper

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorCodeKey carries the machine readable code of a failed operation.
const ErrorCodeKey = "automations.error.code"

// CodedError is implemented by errors that expose a stable error code.
type CodedError interface {
	error
	ErrorCode() string
}

// SetError marks span as failed. When err wraps a CodedError its code is set
// on the span and on the error event.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	var coded CodedError
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		code := attribute.String(ErrorCodeKey, coded.ErrorCode())
		span.SetAttributes(code)
		attrs = append(attrs, code)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
