package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// A task created over HTTP schedules a mention reminder on the queue; the
// worker's job span must join the request's trace.
func TestTraceFollowsTaskIntoQueue(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	const incoming = "4bf92f3577b34da6a3ce929d0e0e4736"

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{name: "new trace"},
		{
			name:        "continues caller trace",
			traceParent: "00-" + incoming + "-00f067aa0ba902b7-01",
			wantTraceID: incoming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			var published amqp.Table
			r := mux.NewRouter()
			r.Use(otelmux.Middleware(ServiceName))
			r.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, req *http.Request) {
				published = InjectAMQP(req.Context(), amqp.Table{"job_type": "time_mention_reminder"})
				w.WriteHeader(http.StatusCreated)
			}).Methods(http.MethodPost)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != http.StatusCreated {
				t.Fatalf("Expected status 201, got %d", rr.Code)
			}

			consumerCtx := ExtractAMQP(context.Background(), published)
			_, span := Tracer().Start(consumerCtx, "process_job", trace.WithSpanKind(trace.SpanKindConsumer))
			span.End()

			spans := exporter.GetSpans()
			if len(spans) != 2 {
				t.Fatalf("Expected HTTP and job spans, got %d", len(spans))
			}
			httpSpan, jobSpan := spans[0], spans[1]
			if jobSpan.Name != "process_job" {
				httpSpan, jobSpan = jobSpan, httpSpan
			}

			if jobSpan.SpanContext.TraceID() != httpSpan.SpanContext.TraceID() {
				t.Errorf("Expected job span in trace %s, got %s", httpSpan.SpanContext.TraceID(), jobSpan.SpanContext.TraceID())
			}
			if jobSpan.Parent.SpanID() != httpSpan.SpanContext.SpanID() {
				t.Errorf("Expected job span parented by the HTTP span")
			}
			if tt.wantTraceID != "" && httpSpan.SpanContext.TraceID().String() != tt.wantTraceID {
				t.Errorf("Expected trace ID %s, got %s", tt.wantTraceID, httpSpan.SpanContext.TraceID())
			}
			if published["job_type"] != "time_mention_reminder" {
				t.Errorf("Expected existing headers kept, got %v", published)
			}
		})
	}
}
