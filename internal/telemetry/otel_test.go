package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "insecure collector", opts: Options{ServiceName: "smart-notes", Endpoint: "localhost:4318", Insecure: true}},
		{name: "sampled", opts: Options{ServiceName: "smart-notes", Endpoint: "localhost:4318", SampleRatio: 0.25}},
		{name: "empty service name", opts: Options{Endpoint: "localhost:4318"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.opts)
			require.NoError(t, err)
			assert.NoError(t, Shutdown(ctx, tp))
		})
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background(), nil))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

// installRecorder swaps in a synchronous in-memory provider. Tests using it
// mutate globals and must not run in parallel.
func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestRouterMiddleware_PropagatesTraceContext(t *testing.T) {
	exporter := installRecorder(t)

	r := mux.NewRouter()
	r.Use(RouterMiddleware("smart-notes"))
	r.HandleFunc("/api/notes", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{name: "new trace"},
		{
			name:        "continues caller trace",
			traceParent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)

			spans := exporter.GetSpans()
			require.NotEmpty(t, spans)
			assert.True(t, spans[0].SpanContext.TraceID().IsValid())
			if tt.wantTraceID != "" {
				assert.Equal(t, tt.wantTraceID, spans[0].SpanContext.TraceID().String())
			}
		})
	}
}

func TestStartJobSpan(t *testing.T) {
	exporter := installRecorder(t)

	_, span := StartJobSpan(context.Background(), "tag_statistics", "job-1")
	EndSpan(span, nil)
	_, span = StartJobSpan(context.Background(), "tag_statistics", "job-2")
	EndSpan(span, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "job tag_statistics", spans[0].Name)
	assert.Equal(t, trace.SpanKindConsumer, spans[0].SpanKind)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Len(t, spans[1].Events, 1, "error recorded as an event")
}
