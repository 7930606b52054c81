package httpx

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// SetupPrometheusExporter creates a meter provider backed by a Prometheus
// exporter and installs it as the global provider. Series are registered on
// the default Prometheus registry, served by promhttp.Handler.
func SetupPrometheusExporter() (*metric.MeterProvider, error) {
	exporter, err := prometheus.New(prometheus.WithNamespace("calendar"))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return provider, nil
}

// Shutdown flushes and stops the meter provider.
func Shutdown(ctx context.Context, provider *metric.MeterProvider) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}
