package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationScope = "MoodLab"

// Setup installs the global meter provider. When disabled a noop provider is
// installed and the returned shutdown func does nothing.
func Setup(enabled, stdout bool) (func(context.Context) error, error) {
	if !enabled {
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return func(context.Context) error { return nil }, nil
	}

	var opts []sdkmetric.Option
	if stdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second)),
		))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Meter returns a meter under the service instrumentation scope.
func Meter() metric.Meter {
	return otel.Meter(instrumentationScope)
}

// MetricsObserver counts events by category and level.
type MetricsObserver struct {
	events metric.Int64Counter
}

func NewMetricsObserver(m metric.Meter) (*MetricsObserver, error) {
	events, err := m.Int64Counter("moodlab.events",
		metric.WithDescription("Dispatcher and broadcast events by category and level"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: events counter: %w", err)
	}
	return &MetricsObserver{events: events}, nil
}

func (o *MetricsObserver) RecordEvent(category, _ string, level Level) {
	o.events.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("level", string(level)),
	))
}
