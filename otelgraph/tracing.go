// Package otelgraph translates operation-surface events into
// OpenTelemetry spans and metrics.
package otelgraph

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldforge/fieldforge/service"
)

// TracingHandler opens a span when an operation starts and ends it when
// the operation finishes or fails. It implements service.EventHandler.
type TracingHandler struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span // document id + op -> span
}

// NewTracingHandler creates a handler producing spans from the given
// tracer.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer: tracer,
		spans:  make(map[string]trace.Span),
	}
}

// Handle processes one operation event.
func (h *TracingHandler) Handle(e service.Event) {
	key := e.DocumentID + "/" + e.Op

	switch e.Kind {
	case service.EventOpStarted:
		_, span := h.tracer.Start(context.Background(), "fieldforge."+e.Op,
			trace.WithAttributes(
				attribute.String("fieldforge.document_id", e.DocumentID),
				attribute.Int64("fieldforge.model", int64(e.Model)),
			))
		h.mu.Lock()
		h.spans[key] = span
		h.mu.Unlock()

	case service.EventOpFinished, service.EventOpFailed:
		h.mu.Lock()
		span, ok := h.spans[key]
		delete(h.spans, key)
		h.mu.Unlock()
		if !ok {
			return
		}
		if e.Kind == service.EventOpFailed {
			span.SetStatus(codes.Error, e.Err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

var _ service.EventHandler = (*TracingHandler)(nil)
