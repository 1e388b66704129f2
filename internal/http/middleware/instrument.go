package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// RequestIdentity assigns the request and trace ids used by logs, error
// bodies and response headers. It must run after the otelgin middleware so an
// active span's trace id wins over a generated one.
func RequestIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		td := &ctxutil.TraceData{
			RequestID: headerOr(c, HeaderRequestID, uuid.NewString),
			TraceID: headerOr(c, HeaderTraceID, func() string {
				if sc := span.SpanContext(); sc.HasTraceID() {
					return sc.TraceID().String()
				}
				return uuid.NewString()
			}),
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Writer.Header().Set(HeaderTraceID, td.TraceID)
		c.Writer.Header().Set(HeaderRequestID, td.RequestID)
		span.SetAttributes(observability.AttrRequestID.String(td.RequestID))
		c.Next()
	}
}

// Instrument records per-route request metrics and tags the request span with
// the content, run and organization it touched. m may be nil.
func Instrument(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(status), time.Since(start))

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(spanAttributes(c)...)
		if status >= 500 {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
	}
}

func spanAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := strings.TrimSpace(c.Param("id")); id != "" && strings.HasPrefix(c.FullPath(), "/api/content/") {
		attrs = append(attrs, observability.AttrContentID.String(id))
	}
	if runID := strings.TrimSpace(c.Query("runId")); runID != "" {
		attrs = append(attrs, observability.AttrRunID.String(runID))
	}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.OrganizationID != "" {
		attrs = append(attrs, observability.AttrOrganizationID.String(rd.OrganizationID))
	}
	return attrs
}

func headerOr(c *gin.Context, name string, fallback func() string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return fallback()
}
