// Package tracing installs the process-wide OpenTelemetry tracer provider.
package tracing

import (
	"go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Install registers the auto-instrumentable provider as the global one, so
// spans started through otel.Tracer are exported once an OpenTelemetry Go
// instrumentation agent attaches to the process. Without an agent the spans
// are dropped.
func Install() trace.TracerProvider {
	tp := sdk.TracerProvider()
	otel.SetTracerProvider(tp)
	return tp
}
