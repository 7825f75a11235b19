package metrics

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds the metrics export settings
type Config struct {
	Enabled     bool
	ServiceName string
	Interval    time.Duration
	// Writer receives the periodic JSON export. When nil, Path is opened
	// for append, or stdout is used when Path is empty too.
	Writer io.Writer
	Path   string
}

// Provider owns the SDK meter provider. When disabled it hands out the
// global meter and does nothing else.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	config        Config
	file          *os.File
}

// NewProvider creates the meter provider and installs it as the global one.
// Extra readers (tests use a manual reader) are attached alongside the
// periodic exporter.
func NewProvider(cfg Config, readers ...sdkmetric.Reader) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}
	if cfg.Writer == nil {
		if cfg.Path == "" {
			cfg.Writer = os.Stdout
		} else {
			f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("failed to open metrics file '%s': %w", cfg.Path, err)
			}
			p.file = f
			cfg.Writer = f
		}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		p.closeFile()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Writer))
	if err != nil {
		p.closeFile()
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
	}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)

	return p, nil
}

// Meter returns the instruments' meter.
func (p *Provider) Meter() metric.Meter {
	if p.meterProvider == nil {
		return otel.Meter(meterName)
	}
	return p.meterProvider.Meter(meterName)
}

// Shutdown exports what is pending and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	err := p.meterProvider.Shutdown(ctx)
	p.closeFile()
	if err != nil {
		return fmt.Errorf("metrics shutdown failed: %w", err)
	}
	return nil
}

func (p *Provider) closeFile() {
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
}

func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
