package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/v1/analyze", "200", 0.123)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/analyze", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordAnalysis(t *testing.T) {
	AnalysesTotal.Reset()
	IndicatorFrames.Reset()
	truncatedBefore := testutil.ToFloat64(TruncatedAnalyses)

	RecordAnalysis(&models.ClassificationResult{
		Label: models.LabelFlood,
		Counts: models.IndicatorCounts{
			WaterFrames:   6,
			MotionFrames:  2,
			SampledFrames: 15,
		},
	}, 0.5)
	RecordAnalysis(&models.ClassificationResult{
		Label: models.LabelFire,
		Counts: models.IndicatorCounts{
			FireFrames:    4,
			WaterFrames:   1,
			SampledFrames: 9,
		},
		Truncated: true,
	}, 0.3)

	if v := testutil.ToFloat64(AnalysesTotal.WithLabelValues("completed", "flood")); v != 1.0 {
		t.Errorf("Expected 1 flood analysis, got %f", v)
	}
	if v := testutil.ToFloat64(IndicatorFrames.WithLabelValues("water")); v != 7.0 {
		t.Errorf("Expected 7 water frames, got %f", v)
	}
	if v := testutil.ToFloat64(IndicatorFrames.WithLabelValues("fire")); v != 4.0 {
		t.Errorf("Expected 4 fire frames, got %f", v)
	}
	if v := testutil.ToFloat64(TruncatedAnalyses) - truncatedBefore; v != 1.0 {
		t.Errorf("Expected 1 truncated analysis, got %f", v)
	}
}

func TestRecordAnalysisUnavailable(t *testing.T) {
	AnalysesTotal.Reset()

	RecordAnalysisUnavailable(models.ReasonVideoUnreadable, 0.01)
	RecordAnalysisUnavailable(models.ReasonVideoUnreadable, 0.02)
	RecordAnalysisUnavailable(models.ReasonInsufficientEvidence, 0.02)

	if v := testutil.ToFloat64(AnalysesTotal.WithLabelValues("unavailable", "video_unreadable")); v != 2.0 {
		t.Errorf("Expected 2 unreadable analyses, got %f", v)
	}
	if v := testutil.ToFloat64(AnalysesTotal.WithLabelValues("unavailable", "insufficient_evidence")); v != 1.0 {
		t.Errorf("Expected 1 insufficient evidence analysis, got %f", v)
	}
}

func TestRecordJobProcessed(t *testing.T) {
	JobsProcessedTotal.Reset()

	RecordJobProcessed("completed", 1.5)
	RecordJobProcessed("failed", -1)

	if v := testutil.ToFloat64(JobsProcessedTotal.WithLabelValues("completed")); v != 1.0 {
		t.Errorf("Expected completed counter to be 1.0, got %f", v)
	}
	if v := testutil.ToFloat64(JobsProcessedTotal.WithLabelValues("failed")); v != 1.0 {
		t.Errorf("Expected failed counter to be 1.0, got %f", v)
	}
}

func TestRecordStorageOperation(t *testing.T) {
	StorageOperations.Reset()

	RecordStorageOperation("download", true, 0.2)
	RecordStorageOperation("download", false, 0.1)

	if v := testutil.ToFloat64(StorageOperations.WithLabelValues("download", "success")); v != 1.0 {
		t.Errorf("Expected 1 successful download, got %f", v)
	}
	if v := testutil.ToFloat64(StorageOperations.WithLabelValues("download", "error")); v != 1.0 {
		t.Errorf("Expected 1 failed download, got %f", v)
	}
}

func TestRecordWebhookAndRateLimit(t *testing.T) {
	WebhookDeliveries.Reset()
	RateLimitRejections.Reset()

	RecordWebhookDelivery("delivered")
	RecordRateLimited("redis")
	RecordRateLimited("redis")

	if v := testutil.ToFloat64(WebhookDeliveries.WithLabelValues("delivered")); v != 1.0 {
		t.Errorf("Expected 1 delivered webhook, got %f", v)
	}
	if v := testutil.ToFloat64(RateLimitRejections.WithLabelValues("redis")); v != 2.0 {
		t.Errorf("Expected 2 rejections, got %f", v)
	}
}

func TestRecordQueueDepth(t *testing.T) {
	QueueDepth.Reset()

	RecordQueueDepth("analysis_jobs", 7)
	RecordQueueDepth("analysis_jobs", 3)

	if v := testutil.ToFloat64(QueueDepth.WithLabelValues("analysis_jobs")); v != 3.0 {
		t.Errorf("Expected depth 3, got %f", v)
	}
}

func TestServerHandler(t *testing.T) {
	s := NewServer(0, "worker", nil)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", rec.Code)
	}

	RecordJobPublished()
	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", rec.Code)
	}
}

func TestServerHealthChecks(t *testing.T) {
	queueUp := true
	s := NewServer(0, "worker", map[string]Check{
		"queue": func(ctx context.Context) error {
			if !queueUp {
				return errors.New("connection closed")
			}
			return nil
		},
		"redis": func(ctx context.Context) error { return nil },
	})

	get := func() (int, healthResponse) {
		rec := httptest.NewRecorder()
		s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		var resp healthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Invalid health body %q: %v", rec.Body.String(), err)
		}
		return rec.Code, resp
	}

	code, resp := get()
	if code != http.StatusOK || resp.Status != "healthy" || resp.Service != "worker" {
		t.Errorf("Expected healthy worker, got %d %+v", code, resp)
	}
	if resp.Checks["queue"] != "ok" || resp.Checks["redis"] != "ok" {
		t.Errorf("Unexpected checks: %v", resp.Checks)
	}

	queueUp = false
	code, resp = get()
	if code != http.StatusServiceUnavailable || resp.Status != "unhealthy" {
		t.Errorf("Expected 503 unhealthy, got %d %+v", code, resp)
	}
	if resp.Checks["queue"] != "connection closed" {
		t.Errorf("Expected queue failure, got %q", resp.Checks["queue"])
	}
}
