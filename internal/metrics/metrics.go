package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencyprep_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emergencyprep_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencyprep_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)

	// Upload Metrics
	VideoUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emergencyprep_video_uploads_total",
			Help: "Total number of video uploads",
		},
	)

	VideoUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emergencyprep_video_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 13), // 64KB to 256MB
		},
	)

	// Analysis Metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencyprep_analyses_total",
			Help: "Total number of analyses by outcome",
		},
		[]string{"status", "label"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emergencyprep_analysis_duration_seconds",
			Help:    "Time spent sampling and classifying one video",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
	)

	FramesSampled = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emergencyprep_frames_sampled",
			Help:    "Frames decoded per analysis",
			Buckets: prometheus.LinearBuckets(0, 3, 11),
		},
	)

	IndicatorFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencyprep_indicator_frames_total",
			Help: "Sampled frames matching each indicator",
		},
		[]string{"indicator"},
	)

	TruncatedAnalyses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emergencyprep_truncated_analyses_total",
			Help: "Analyses where decoding stopped before the sampling plan finished",
		},
	)

	AnalysesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emergencyprep_analyses_in_progress",
			Help: "Number of analyses currently running",
		},
	)

	// Job Metrics
	JobsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emergencyprep_jobs_published_total",
			Help: "Total number of analysis jobs published",
		},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencyprep_jobs_processed_total",
			Help: "Total number of analysis jobs processed by workers",
		},
		[]string{"status"},
	)

	JobQueueTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emergencyprep_job_queue_time_seconds",
			Help:    "Time jobs spend waiting in queue",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "emergencyprep_queue_depth",
			Help: "Messages waiting in each job queue",
		},
		[]string{"queue"},
	)

	// Webhook Metrics
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencyprep_webhook_deliveries_total",
			Help: "Webhook deliveries by final status",
		},
		[]string{"status"},
	)

	// Storage Metrics
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencyprep_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emergencyprep_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimited records a rejected request
func RecordRateLimited(backend string) {
	RateLimitRejections.WithLabelValues(backend).Inc()
}

// RecordUpload records an uploaded video
func RecordUpload(sizeBytes int64) {
	VideoUploadsTotal.Inc()
	VideoUploadSizeBytes.Observe(float64(sizeBytes))
}

// RecordAnalysis records a completed classification
func RecordAnalysis(result *models.ClassificationResult, duration float64) {
	AnalysesTotal.WithLabelValues(models.AnalysisStatusCompleted, string(result.Label)).Inc()
	AnalysisDuration.Observe(duration)
	FramesSampled.Observe(float64(result.Counts.SampledFrames))

	IndicatorFrames.WithLabelValues("water").Add(float64(result.Counts.WaterFrames))
	IndicatorFrames.WithLabelValues("fire").Add(float64(result.Counts.FireFrames))
	IndicatorFrames.WithLabelValues("dark").Add(float64(result.Counts.DarkFrames))
	IndicatorFrames.WithLabelValues("motion").Add(float64(result.Counts.MotionFrames))

	if result.Truncated {
		TruncatedAnalyses.Inc()
	}
}

// RecordAnalysisUnavailable records an analysis that produced no result
func RecordAnalysisUnavailable(reason string, duration float64) {
	AnalysesTotal.WithLabelValues(models.AnalysisStatusUnavailable, reason).Inc()
	AnalysisDuration.Observe(duration)
}

// RecordJobPublished records a published job
func RecordJobPublished() {
	JobsPublishedTotal.Inc()
}

// RecordJobProcessed records a job finished by a worker
func RecordJobProcessed(status string, queueSeconds float64) {
	JobsProcessedTotal.WithLabelValues(status).Inc()
	if queueSeconds >= 0 {
		JobQueueTime.Observe(queueSeconds)
	}
}

// RecordQueueDepth records the number of messages waiting in a queue
func RecordQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordWebhookDelivery records the final status of a callback
func RecordWebhookDelivery(status string) {
	WebhookDeliveries.WithLabelValues(status).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation string, success bool, duration float64) {
	status := "success"
	if !success {
		status = "error"
	}
	StorageOperations.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
}
