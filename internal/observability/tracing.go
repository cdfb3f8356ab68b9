package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/OpenFogStack/celestial/internal/simulator"

// NewTracerProvider builds an OpenTelemetry tracer provider that writes
// human-readable spans to w, used by the satgen binary to record one span
// per tick without standing up a collector.
func NewTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName("celestial"))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns the package-scoped tracer used to span each tick and
// pipeline stage.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartTick opens a span covering one tick's five pipeline stages.
func StartTick(ctx context.Context, tick int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "tick", trace.WithAttributes(attribute.Int("celestial.tick", tick)))
}
