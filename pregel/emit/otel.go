package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into an OpenTelemetry span.
//
// Span layout:
//   - Name: the event Msg ("step_start", "task_end", …).
//   - Attributes: run id, step, task id, node, plus every Meta field.
//   - Status: error when Meta carries an "error" entry.
//   - Start time: moved back by Meta["duration_ms"] when present, and the
//     span ends at emission, so step and task spans reflect their real
//     duration.
//
// Wire it to a configured provider:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	emitter := emit.NewOTelEmitter(otel.Tracer("hailstorm"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an emitter creating spans on tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records the event as an immediately-ended span.
func (o *OTelEmitter) Emit(event Event) {
	o.record(context.Background(), event)
}

// EmitBatch records the events in order.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		o.record(ctx, event)
	}
	return nil
}

// Flush is a no-op; exporting is the tracer provider's concern.
func (o *OTelEmitter) Flush(context.Context) error { return nil }

func (o *OTelEmitter) record(ctx context.Context, event Event) {
	start := time.Now()
	if ms, ok := metaInt64(event.Meta, "duration_ms"); ok {
		start = start.Add(-time.Duration(ms) * time.Millisecond)
	}
	_, span := o.tracer.Start(ctx, event.Msg, trace.WithTimestamp(start))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("pregel.run_id", event.RunID),
		attribute.Int("pregel.step", event.Step),
	}
	if event.TaskID != "" {
		attrs = append(attrs, attribute.String("pregel.task_id", event.TaskID))
	}
	if event.Node != "" {
		attrs = append(attrs, attribute.String("pregel.node", event.Node))
	}
	for key, value := range event.Meta {
		attrs = append(attrs, metaAttribute("pregel.meta."+key, value))
	}
	span.SetAttributes(attrs...)

	if errVal, ok := event.Meta["error"]; ok {
		span.SetStatus(codes.Error, fmt.Sprint(errVal))
	}
}

func metaAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

func metaInt64(meta map[string]any, key string) (int64, bool) {
	switch v := meta[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
