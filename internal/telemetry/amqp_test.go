package telemetry

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestAMQPPropagation(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectAMQP(ctx, nil)
	if _, ok := headers["traceparent"]; !ok {
		t.Fatalf("Expected traceparent header, got %v", headers)
	}

	extracted := trace.SpanContextFromContext(ExtractAMQP(context.Background(), headers))
	if extracted.TraceID() != traceID {
		t.Errorf("Expected trace ID %s, got %s", traceID, extracted.TraceID())
	}
	if !extracted.IsRemote() {
		t.Error("Expected extracted span context to be remote")
	}
}

func TestExtractAMQP_NoHeaders(t *testing.T) {
	ctx := context.Background()
	if got := ExtractAMQP(ctx, nil); got != ctx {
		t.Error("Expected context unchanged without headers")
	}
}

func TestAMQPHeaderCarrier_Get(t *testing.T) {
	c := AMQPHeaderCarrier(amqp.Table{"s": "v", "n": int32(7)})
	if got := c.Get("s"); got != "v" {
		t.Errorf("Expected v, got %s", got)
	}
	if got := c.Get("n"); got != "7" {
		t.Errorf("Expected 7, got %s", got)
	}
	if got := c.Get("missing"); got != "" {
		t.Errorf("Expected empty string, got %s", got)
	}
	if len(c.Keys()) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(c.Keys()))
	}
}
