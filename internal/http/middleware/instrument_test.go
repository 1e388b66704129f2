package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/actionsummary-backend/internal/observability"
	"github.com/yungbote/actionsummary-backend/internal/platform/ctxutil"
)

func instrumentedEngine(t *testing.T, m *observability.Metrics, rec *tracetest.SpanRecorder) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(RequestIdentity())
	r.Use(Instrument(m))
	r.DELETE("/api/content/:id/action-summary", func(c *gin.Context) {
		rd := &ctxutil.RequestData{OrganizationID: "org-1"}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		td := ctxutil.GetTraceData(c.Request.Context())
		if td == nil || td.RequestID == "" || td.TraceID == "" {
			t.Errorf("trace data: got=%+v", td)
		}
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestInstrumentTagsRequestSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	m := observability.NewMetrics()
	r := instrumentedEngine(t, m, rec)

	req := httptest.NewRequest(http.MethodDelete, "/api/content/c-1/action-summary?runId=run-a", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "req-42" {
		t.Fatalf("request id header: want=%q got=%q", "req-42", got)
	}
	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans: want=1 got=%d", len(spans))
	}
	span := spans[0]
	if got := w.Header().Get(HeaderTraceID); got != span.SpanContext().TraceID().String() {
		t.Fatalf("trace id header: want=%q got=%q", span.SpanContext().TraceID().String(), got)
	}
	for key, want := range map[attribute.Key]string{
		observability.AttrRequestID:      "req-42",
		observability.AttrContentID:      "c-1",
		observability.AttrRunID:          "run-a",
		observability.AttrOrganizationID: "org-1",
	} {
		if got := spanAttr(span, key); got != want {
			t.Fatalf("span %s: want=%q got=%q", key, want, got)
		}
	}
	if span.Status().Code.String() != "Error" {
		t.Fatalf("span status: want=Error got=%s", span.Status().Code)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	want := `as_api_requests_total{method="DELETE",route="/api/content/:id/action-summary",status="500"} 1.000000`
	if !strings.Contains(buf.String(), want) {
		t.Fatalf("metrics: missing %q in\n%s", want, buf.String())
	}
}

func TestInstrumentWithoutMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIdentity())
	r.Use(Instrument(nil))
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if w.Header().Get(HeaderRequestID) == "" || w.Header().Get(HeaderTraceID) == "" {
		t.Fatalf("identity headers missing: %v", w.Header())
	}
}
