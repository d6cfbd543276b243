package cli

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fieldforge/fieldforge/otelgraph"
	"github.com/fieldforge/fieldforge/service"
)

// setupTelemetry wires OTLP/HTTP tracing plus in-process metrics onto a
// graph service. Returns a shutdown function flushing pending spans.
func setupTelemetry(ctx context.Context, svc *service.GraphService, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tracerProvider)

	meterProvider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(meterProvider)

	svc.AddEventHandler(otelgraph.NewTracingHandler(tracerProvider.Tracer("fieldforge")))
	metrics, err := otelgraph.NewMetricsHandler(meterProvider.Meter("fieldforge"))
	if err != nil {
		return nil, fmt.Errorf("creating metrics handler: %w", err)
	}
	svc.AddEventHandler(metrics)

	return func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
		return meterProvider.Shutdown(ctx)
	}, nil
}
