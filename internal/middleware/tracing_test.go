package middleware

import (
	"net/http/httptest"
	"testing"

	"chirp/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	prevTracer, prevProp := observability.Tracer, otel.GetTextMapPropagator()
	observability.Tracer = tp.Tracer("test")
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		observability.Tracer = prevTracer
		otel.SetTextMapPropagator(prevProp)
	})
	return rec
}

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	rec := recordSpans(t)
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/posts/42", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /posts/:id", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), resp.Header.Get("X-Trace-ID"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracingMiddleware_ContinuesCallerTrace(t *testing.T) {
	rec := recordSpans(t)
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/feed", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	})

	req := httptest.NewRequest("GET", "/feed", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
