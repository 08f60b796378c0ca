// Package middleware provides the HTTP middleware of the marketplace API.
package middleware

import (
	"net/http"

	"github.com/freightmarket/backend/internal/infrastructure/logger"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens a server span per request, named after the matched route,
// and marks it failed for 4xx and 5xx responses. Disabled tracing installs
// nothing.
func Tracing(service string, enabled bool) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(service), spanStatus}
}

func spanStatus(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if status := c.Writer.Status(); span.IsRecording() && status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

// SpanIdentity tags the active span with the request id and the caller.
// It must run after JWT auth so the caller is known.
func SpanIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			attrs := make([]attribute.KeyValue, 0, 3)
			if id := GetRequestID(c); id != "" {
				attrs = append(attrs, attribute.String("request_id", id))
			}
			if userID := c.GetString(logger.GinUserIDKey); userID != "" {
				attrs = append(attrs,
					attribute.String("user_id", userID),
					telemetry.AttrRole.String(c.GetString(logger.GinRoleKey)),
				)
			}
			span.SetAttributes(attrs...)
		}
		c.Next()
	}
}
