package middleware

import (
	"fmt"

	"chirp/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span per request, continuing any W3C
// trace context the caller sent. The trace id is echoed in X-Trace-ID.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		carrier := propagation.HeaderCarrier(c.GetReqHeaders())
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.ip", c.IP()),
				attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals(LocalTraceID, traceID)
		c.Set("X-Trace-ID", traceID)
		if requestID := c.Locals(LocalRequestID); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprint(requestID)))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		// name by route template so /posts/:id spans aggregate
		if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
			span.SetName(c.Method() + " " + route.Path)
			span.SetAttributes(attribute.String("http.route", route.Path))
		}
		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if userID, ok := UserID(c); ok {
			span.SetAttributes(attribute.String("user.id", userID))
		}
		if err != nil {
			span.RecordError(err)
		}
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		return err
	}
}
