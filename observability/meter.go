package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/courier/logger"
)

// MeterConfig configures the OTLP metric exporter.
type MeterConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns a disabled config pointing at a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName: serviceName,
		Environment: "development",
		Endpoint:    "localhost:4318",
		Insecure:    true,
		Interval:    15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The caller shuts the provider down on exit.
func InitMeter(ctx context.Context, cfg MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("meter initialized", logger.Fields(
			"endpoint", cfg.Endpoint,
			"interval", cfg.Interval.String(),
		))
	}
	return mp, nil
}

// Meter returns the library meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the client's instruments.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	retryTotal      metric.Int64Counter
	errorTotal      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.requestTotal, err = meter.Int64Counter("courier.request.total",
		metric.WithDescription("Completed operations by method and outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating courier.request.total: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("courier.request.duration",
		metric.WithDescription("Operation duration from Execute to delivery"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating courier.request.duration: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("courier.request.active",
		metric.WithDescription("Operations not yet delivered"),
	); err != nil {
		return nil, fmt.Errorf("creating courier.request.active: %w", err)
	}
	if m.retryTotal, err = meter.Int64Counter("courier.retry.total",
		metric.WithDescription("Attempts repeated after a transport failure"),
	); err != nil {
		return nil, fmt.Errorf("creating courier.retry.total: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("courier.error.total",
		metric.WithDescription("Failures by kind and component"),
	); err != nil {
		return nil, fmt.Errorf("creating courier.error.total: %w", err)
	}
	return &m, nil
}

// RecordRequestStart increments the active operation count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active operations and records the outcome.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, outcome string, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordRetry counts one repeated attempt.
func (m *Metrics) RecordRetry(ctx context.Context, method string) {
	m.retryTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordError counts a failure by kind and component.
func (m *Metrics) RecordError(ctx context.Context, kind, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("component", component),
	))
}
