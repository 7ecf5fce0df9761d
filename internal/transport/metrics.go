package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

const MeterName = "f5lm-transport"

// Metrics holds the device-transport OpenTelemetry instruments.
type Metrics struct {
	Calls        metric.Int64Counter
	Failures     metric.Int64Counter
	CallDuration metric.Float64Histogram
	Fallbacks    metric.Int64Counter
	VerifyPolls  metric.Int64Counter
}

// NewMetrics creates the transport instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.Calls, err = meter.Int64Counter(
		"f5lm_transport_calls_total",
		metric.WithDescription("Total number of device transport calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calls counter: %w", err)
	}

	m.Failures, err = meter.Int64Counter(
		"f5lm_transport_failures_total",
		metric.WithDescription("Total number of failed device transport calls by class"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	m.CallDuration, err = meter.Float64Histogram(
		"f5lm_transport_call_duration_seconds",
		metric.WithDescription("Device transport call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create call duration histogram: %w", err)
	}

	m.Fallbacks, err = meter.Int64Counter(
		"f5lm_transport_fallbacks_total",
		metric.WithDescription("Total number of management API calls retried over the remote shell"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallbacks counter: %w", err)
	}

	m.VerifyPolls, err = meter.Int64Counter(
		"f5lm_verify_polls_total",
		metric.WithDescription("Total number of post-mutation verification polls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify polls counter: %w", err)
	}

	return m, nil
}

// RecordCall records one transport call. Safe on a nil receiver so wiring
// metrics stays optional.
func (m *Metrics) RecordCall(ctx context.Context, transportName, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	labels := metric.WithAttributes(
		attribute.String("transport", transportName),
		attribute.String("operation", operation),
	)

	m.Calls.Add(ctx, 1, labels)
	m.CallDuration.Record(ctx, duration.Seconds(), labels)

	if err != nil {
		m.Failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("transport", transportName),
			attribute.String("operation", operation),
			attribute.String("class", failureClass(err)),
		))
	}
}

// RecordFallback records a management API operation degrading to the
// remote shell.
func (m *Metrics) RecordFallback(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordPoll records one verification poll attempt.
func (m *Metrics) RecordPoll(ctx context.Context, ip string, success bool) {
	if m == nil {
		return
	}
	m.VerifyPolls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ip", ip),
		attribute.Bool("success", success),
	))
}

// failureClass maps an error onto its taxonomy label.
func failureClass(err error) string {
	var terr *apperrors.TransportError
	if errors.As(err, &terr) {
		return terr.Code()
	}
	if apperrors.IsCredential(err) {
		return apperrors.CodeCredential
	}
	return "unknown"
}
