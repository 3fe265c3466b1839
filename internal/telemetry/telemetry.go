// Package telemetry wires OpenTelemetry tracing for ingestion runs. With the
// "stdout" exporter every finished span is written as JSON to the given
// writer; with "none" the global no-op provider stays in place.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName names the tracer used across the module.
const InstrumentationName = "waferstats"

// Providers holds the tracer in use and a shutdown hook that flushes
// pending spans.
type Providers struct {
	Tracer   trace.Tracer
	Shutdown func(ctx context.Context) error
}

// Setup installs the tracer provider selected by exporter ("stdout" or
// "none"). A nil writer means stderr.
func Setup(exporter, service string, w io.Writer) (*Providers, error) {
	switch exporter {
	case "", "none":
		return &Providers{
			Tracer:   noop.NewTracerProvider().Tracer(InstrumentationName),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("telemetry: unknown trace exporter %q", exporter)
	}

	if w == nil {
		w = os.Stderr
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create stdout exporter: %w", err)
	}
	if service == "" {
		service = InstrumentationName
	}
	res := resource.NewSchemaless(attribute.String("service.name", service))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Providers{
		Tracer:   tp.Tracer(InstrumentationName),
		Shutdown: tp.Shutdown,
	}, nil
}

// Tracer returns t, or the global provider's tracer when t is nil.
func Tracer(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return otel.Tracer(InstrumentationName)
}
