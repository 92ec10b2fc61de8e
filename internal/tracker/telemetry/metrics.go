// Package telemetry sets up OpenTelemetry metrics exported in the
// Prometheus text format.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	meterName = "github.com/scottsaenz/child-allowance-tracker"
	namespace = "allowance_tracker"
)

// Metrics holds the instruments recorded by the HTTP middleware.
type Metrics struct {
	Requests        metric.Int64Counter
	ErrorCount      metric.Int64Counter
	RequestDuration metric.Float64Histogram
	Transactions    metric.Int64Counter

	registry *prometheus.Registry
}

// PrometheusHandler serves the collected metrics.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InitMetrics creates a meter provider backed by a private Prometheus
// registry, starts Go runtime metrics and returns the shutdown func.
func InitMetrics(version string) (func(context.Context) error, *Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, nil, fmt.Errorf("failed to start runtime metrics: %w", err)
	}

	meter := provider.Meter(meterName, metric.WithInstrumentationVersion(version))
	m := &Metrics{registry: registry}

	m.Requests, err = meter.Int64Counter(
		namespace+"_http_requests",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	m.ErrorCount, err = meter.Int64Counter(
		namespace+"_http_errors",
		metric.WithDescription("Total number of HTTP responses with status >= 400"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create errors counter: %w", err)
	}

	m.RequestDuration, err = meter.Float64Histogram(
		namespace+"_http_request_duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	m.Transactions, err = meter.Int64Counter(
		namespace+"_transactions_recorded",
		metric.WithDescription("Transactions applied to child balances, by type"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create transactions counter: %w", err)
	}

	return provider.Shutdown, m, nil
}
