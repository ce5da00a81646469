package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type TracingOptions struct {
	Enabled        bool
	JaegerEndpoint string
	SampleRatio    float64
	// Exporter replaces the Jaeger collector exporter, mainly for tests.
	Exporter sdktrace.SpanExporter
}

// newTracerProvider returns nil when tracing is disabled.
func newTracerProvider(opts TracingOptions, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if !opts.Enabled {
		return nil, nil
	}

	exporter := opts.Exporter
	if exporter == nil {
		if opts.JaegerEndpoint == "" {
			return nil, fmt.Errorf("jaeger endpoint is required when tracing is enabled")
		}
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
		exporter = exp
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
	), nil
}
