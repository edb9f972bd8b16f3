// Package telemetry provides OpenTelemetry initialization and pool instrumentation.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"

	"github.com/coachpo/spawnpool/internal/config"
)

const (
	serviceName    = "spawnpool"
	serviceVersion = "1.0.0"
	meterName      = "github.com/coachpo/spawnpool"
)

// Config defines OpenTelemetry configuration parameters.
type Config struct {
	OTLPEndpoint    string
	OTLPInsecure    bool
	EnableMetrics   bool
	MetricInterval  time.Duration
	ShutdownTimeout time.Duration
	ServiceName     string
	ServiceVersion  string
	Environment     string
}

// FromAppConfig derives telemetry settings from the application configuration.
func FromAppConfig(cfg config.AppConfig) Config {
	name := cfg.Telemetry.ServiceName
	if name == "" {
		name = serviceName
	}
	return Config{
		OTLPEndpoint:    cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:    cfg.Telemetry.OTLPInsecure,
		EnableMetrics:   cfg.Telemetry.EnableMetrics,
		MetricInterval:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		ServiceName:     name,
		ServiceVersion:  serviceVersion,
		Environment:     string(cfg.Environment),
	}
}

// Provider manages the OpenTelemetry meter provider (metrics only).
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	config        Config
}

// NewProvider initializes a telemetry provider. Without an endpoint, or with metrics disabled,
// the provider hands out meters from the global (no-op by default) provider.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.EnableMetrics || strings.TrimSpace(cfg.OTLPEndpoint) == "" {
		return &Provider{meterProvider: nil, config: cfg}, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, res, cfg)
	if err != nil {
		return nil, fmt.Errorf("create meter provider: %w", err)
	}
	otel.SetMeterProvider(mp)
	return &Provider{meterProvider: mp, config: cfg}, nil
}

// Enabled reports whether metrics are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.meterProvider != nil
}

// Shutdown flushes and stops the exporter, bounded by the configured timeout.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if p.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ShutdownTimeout)
		defer cancel()
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter: %w", err)
	}
	return nil
}

// Meter returns the spawnpool meter.
func (p *Provider) Meter(opts ...metric.MeterOption) metric.Meter {
	if !p.Enabled() {
		return otel.Meter(meterName, opts...)
	}
	return p.meterProvider.Meter(meterName, opts...)
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, resource.WithAttributes(
			AttrEnvironment.String(strings.ToLower(cfg.Environment)),
		))
	}
	attrs = append(attrs, resource.WithProcessRuntimeName(), resource.WithProcessRuntimeVersion())
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("create telemetry resource: %w", err)
	}
	return res, nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, cfg Config) (*sdkmetric.MeterProvider, error) {
	host, insecure, err := parseEndpoint(cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(host)}
	if insecure || cfg.OTLPInsecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithView(frameDurationView()),
	), nil
}

// parseEndpoint accepts either host:port or a URL; plain http URLs imply an insecure exporter.
func parseEndpoint(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse otlp endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("parse otlp endpoint %q: missing host", raw)
	}
	return parsed.Host, parsed.Scheme != "https", nil
}

// frameDurationView sets explicit buckets for simulated frame latency, 0.05ms to 100ms.
func frameDurationView() sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{ //nolint:exhaustruct
			Name: MetricFrameDuration,
			Kind: sdkmetric.InstrumentKindHistogram,
		},
		sdkmetric.Stream{ //nolint:exhaustruct
			Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 16, 33, 50, 100},
				NoMinMax:   false,
			},
		},
	)
}
