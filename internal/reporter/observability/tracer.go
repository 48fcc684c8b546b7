package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "git-ai-reporter"

// InitTracing installs a local always-on TracerProvider as the global
// default and returns a named Tracer plus a shutdown func. There is no OTLP
// exporter wired here: spans exist to populate trace_id/span_id on log
// records, not to leave the process.
func InitTracing(serviceName string) (trace.Tracer, func(context.Context) error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("observability: shutdown tracer provider: %w", err)
		}

		return nil
	}

	return tp.Tracer(tracerName + "/" + serviceName), shutdown
}
