package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("status", "COMPLETED"),
		attribute.String("order_id", "01J..."),
		attribute.String("outcome", "applied"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "order_id" {
			t.Fatalf("order_id must not be used as a metric label")
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordWebhookEvent(ctx, "applied", "COMPLETED")
	m.RecordEnrollmentApproved(ctx, "webhook")
	m.RecordCertificateIssued(ctx)
	m.RecordArtifactFailure(ctx, "upload")
	m.RecordDeliveryCreated(ctx)
	m.RecordNotificationDropped(ctx, "notification", "queue_full")
	m.RecordSchedulerJob(ctx, "artifact_backfill", "ok", time.Second)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "academy"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordWebhookEvent(context.Background(), "applied", "COMPLETED")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := newHTTPMetrics(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/health", http.MethodGet, "200")); got != 1 {
		t.Fatalf("expected 1 request counted, got %v", got)
	}
}

func TestHTTPMetricsUnknownRouteLatency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := newHTTPMetrics(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	r := gin.New()
	r.Use(GinMiddleware(m))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing/123", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var latency *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "academy_http_request_duration_seconds" {
			latency = mf
		}
	}
	if latency == nil || len(latency.GetMetric()) != 1 {
		t.Fatalf("expected one latency series")
	}
	series := latency.GetMetric()[0]
	for _, label := range series.GetLabel() {
		if label.GetName() == "route" && label.GetValue() != "unknown" {
			t.Fatalf("raw paths must not become route labels, got %q", label.GetValue())
		}
	}
	if series.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one observation, got %d", series.GetHistogram().GetSampleCount())
	}
}
