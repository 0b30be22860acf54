package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelObserver records events on OpenTelemetry traces. When the context
// carries a recording span the event is added to it as a span event, so store
// activity shows up inside the caller's trace. Otherwise the event becomes a
// zero-length span of its own, marked as an error at LevelError and above.
type OTelObserver struct {
	tracer trace.Tracer
}

// NewOTelObserver creates an OTelObserver that starts standalone spans with
// the given tracer.
func NewOTelObserver(tracer trace.Tracer) *OTelObserver {
	return &OTelObserver{tracer: tracer}
}

func (o *OTelObserver) OnEvent(ctx context.Context, event Event) {
	attrs := eventAttributes(event)

	if parent := trace.SpanFromContext(ctx); parent.IsRecording() {
		parent.AddEvent(string(event.Type),
			trace.WithTimestamp(event.Timestamp),
			trace.WithAttributes(attrs...),
		)
		return
	}

	_, span := o.tracer.Start(ctx, string(event.Type),
		trace.WithTimestamp(event.Timestamp),
		trace.WithAttributes(attrs...),
	)
	if event.Level >= LevelError {
		desc, _ := event.Data["error"].(string)
		span.SetStatus(codes.Error, desc)
	}
	span.End(trace.WithTimestamp(event.Timestamp))
}

func eventAttributes(event Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("event.source", event.Source),
		attribute.String("event.severity", event.Level.String()),
	}
	for _, a := range event.Attrs() {
		attrs = append(attrs, toAttribute(a.Key, a.Value))
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case error:
		return attribute.String(key, v.Error())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprint(value))
}
