package otelgraph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fieldforge/fieldforge/service"
)

// MetricsHandler records counters and histograms for graph operations.
// It implements service.EventHandler.
type MetricsHandler struct {
	opCalls    metric.Int64Counter
	opFailures metric.Int64Counter
	opDuration metric.Float64Histogram

	mu      sync.Mutex
	started map[string]time.Time // document id + op -> start time
}

// NewMetricsHandler creates a handler recording through the given meter.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	calls, err := meter.Int64Counter("fieldforge.op.calls",
		metric.WithDescription("Number of graph operations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("fieldforge.op.failures",
		metric.WithDescription("Number of failed graph operations"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("fieldforge.op.duration",
		metric.WithDescription("Duration of graph operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		opCalls:    calls,
		opFailures: failures,
		opDuration: duration,
		started:    make(map[string]time.Time),
	}, nil
}

// Handle processes one operation event.
func (h *MetricsHandler) Handle(e service.Event) {
	key := e.DocumentID + "/" + e.Op
	attrs := metric.WithAttributes(attribute.String("op", e.Op))
	ctx := context.Background()

	switch e.Kind {
	case service.EventOpStarted:
		h.mu.Lock()
		h.started[key] = e.At
		h.mu.Unlock()

	case service.EventOpFinished, service.EventOpFailed:
		h.opCalls.Add(ctx, 1, attrs)
		if e.Kind == service.EventOpFailed {
			h.opFailures.Add(ctx, 1, attrs)
		}
		h.mu.Lock()
		startedAt, ok := h.started[key]
		delete(h.started, key)
		h.mu.Unlock()
		if ok {
			h.opDuration.Record(ctx, e.At.Sub(startedAt).Seconds(), attrs)
		}
	}
}

var _ service.EventHandler = (*MetricsHandler)(nil)
