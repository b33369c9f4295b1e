package models

import (
	"time"
)

// WebhookEvent represents a callback payload
type WebhookEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// WebhookDelivery tracks one callback delivery for the lifetime of a job
type WebhookDelivery struct {
	ID           string     `json:"id"`
	JobID        string     `json:"job_id"`
	URL          string     `json:"url"`
	Event        string     `json:"event"`
	Status       string     `json:"status"`
	StatusCode   int        `json:"status_code"`
	ResponseBody string     `json:"response_body,omitempty"`
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Webhook event types
const (
	WebhookEventAnalysisCompleted   = "analysis.completed"
	WebhookEventAnalysisUnavailable = "analysis.unavailable"
)

// WebhookDeliveryStatus constants
const (
	WebhookDeliveryStatusPending   = "pending"
	WebhookDeliveryStatusDelivered = "delivered"
	WebhookDeliveryStatusFailed    = "failed"
)
