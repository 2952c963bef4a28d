// Package telemetry wires OpenTelemetry tracing for scenario runs.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rocketship-ai/uiprobe"

// Span attribute keys.
var (
	AttrRunID     = attribute.Key("uiprobe.run.id")
	AttrScenario  = attribute.Key("uiprobe.scenario")
	AttrStep      = attribute.Key("uiprobe.step.name")
	AttrStepIndex = attribute.Key("uiprobe.step.index")
	AttrAction    = attribute.Key("uiprobe.step.action")
	AttrStatus    = attribute.Key("uiprobe.status")
	AttrKind      = attribute.Key("uiprobe.failure.kind")
)

// Provider owns the tracer provider and the file spans are exported to.
type Provider struct {
	provider *sdktrace.TracerProvider
	file     *os.File
}

// Setup exports spans as JSON to path. With an empty path tracing stays the
// global no-op and Shutdown does nothing.
func Setup(path, version string) (*Provider, error) {
	if path == "" {
		return &Provider{}, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "uiprobe"),
		attribute.String("service.version", version),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return &Provider{provider: provider, file: file}, nil
}

// Shutdown flushes pending spans and closes the trace file.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return errors.Join(p.provider.Shutdown(ctx), p.file.Close())
}

// Tracer returns the uiprobe tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
