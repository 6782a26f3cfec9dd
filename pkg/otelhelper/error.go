package otelhelper

import (
	"errors"

	"github.com/dukex/operion-forms/pkg/engine"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span failed. Engine errors also tag the command and the
// instance they were raised for.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	var engineErr *engine.Error
	if errors.As(err, &engineErr) {
		attrs = append(attrs, attribute.String(EngineCommandKey, engineErr.Command))

		if engineErr.WorkflowID != "" {
			attrs = append(attrs, attribute.String(WorkflowIDKey, engineErr.WorkflowID))
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
