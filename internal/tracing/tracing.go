// Package tracing wires OTLP trace export for the worker binaries.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// Config describes where spans go and how many of them to keep.
type Config struct {
	ServiceName string
	// Endpoint is the host:port of an OTLP HTTP collector. Leaving it
	// empty disables export entirely.
	Endpoint    string
	SampleRatio float64
}

// Provider owns the process-wide tracer provider. The zero value and a
// nil *Provider are both inert, so callers can defer Close unconditionally.
type Provider struct {
	tp     *sdktrace.TracerProvider
	logger *zap.Logger
}

// Start registers a global tracer provider that batches spans to
// cfg.Endpoint over plain HTTP. With no endpoint configured it returns
// a nil provider and no error.
func Start(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "onsets"
	}
	if cfg.SampleRatio <= 0 || cfg.SampleRatio > 1 {
		cfg.SampleRatio = 1
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("Trace export started",
		zap.String("service_name", cfg.ServiceName),
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sample_ratio", cfg.SampleRatio))

	return &Provider{tp: tp, logger: logger}, nil
}

// Close flushes pending spans and shuts the provider down.
func (p *Provider) Close() error {
	if p == nil || p.tp == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.tp.Shutdown(ctx); err != nil {
		p.logger.Error("Trace export shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
