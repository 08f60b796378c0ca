// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope continuous profiling into the marketplace API. Every provider
// degrades to a no-op when its feature is disabled.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freightmarket/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// Export is the OTLP/gRPC destination shared by traces, metrics and logs.
type Export struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

func (e Export) resource() (*resource.Resource, error) {
	version := e.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(e.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// shutdownWithin gives a provider at most exportFlushTimeout to flush.
func shutdownWithin(ctx context.Context, signal string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, exportFlushTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	return nil
}

const exportFlushTimeout = 10 * time.Second

// Providers is every telemetry provider started for one process.
type Providers struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
}

// Setup starts what cfg enables. Span profiles are linked when tracing and
// profiling are both on. A partial start is unwound before returning an error.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string, logger *zap.Logger) (*Providers, error) {
	export := Export{
		Endpoint:       cfg.CollectorEndpoint,
		Insecure:       cfg.Insecure,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
	}
	p := &Providers{}
	var err error

	if p.Tracer, err = NewTracerProvider(ctx, Config{
		Enabled:       cfg.Enabled,
		SamplingRatio: cfg.SamplingRatio,
		Export:        export,
	}, logger); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, MetricsConfig{
		Enabled:        cfg.Enabled,
		ExportInterval: cfg.MetricsInterval,
		Export:         export,
	}, logger); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Logs, err = NewLoggerProvider(ctx, LogsConfig{
		Enabled: cfg.Enabled,
		Export:  export,
	}, logger); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.ProfilingServer,
		ApplicationName: cfg.ServiceName,
	}, logger); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}

	if p.Profiler.IsEnabled() {
		p.Tracer.EnableSpanProfiles()
	}
	return p, nil
}

// Shutdown flushes and stops every started provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	if p.Profiler != nil {
		errs = append(errs, p.Profiler.Stop())
	}
	return errors.Join(errs...)
}
