package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/config"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

const (
	SignatureHeader = "X-Webhook-Signature"
	EventHeader     = "X-Webhook-Event"
	DeliveryHeader  = "X-Webhook-Delivery"

	maxResponseBody = 1024
)

var (
	ErrInvalidCallbackURL = errors.New("invalid callback url")
	ErrDeliveryFailed     = errors.New("webhook delivery failed")
)

// Service delivers signed analysis results to caller callback URLs
type Service struct {
	client      *http.Client
	secret      string
	maxRetries  int
	retryDelays []time.Duration
	logger      *logging.Logger
}

// NewService creates a new webhook service
func NewService(cfg config.WebhookConfig, logger *logging.Logger) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		client: &http.Client{
			Timeout: timeout,
		},
		secret:     cfg.Secret,
		maxRetries: cfg.MaxRetries,
		// Retry delays: 1s, 5s, 15s, then 15s for any further retry
		retryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			15 * time.Second,
		},
		logger: logger,
	}
}

// ValidateCallbackURL checks that raw is an absolute http(s) URL
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCallbackURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidCallbackURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidCallbackURL)
	}
	return nil
}

// NotifyAnalysis sends the outcome of an analysis job to its callback URL
func (s *Service) NotifyAnalysis(ctx context.Context, job *models.AnalysisJob, analysis *models.Analysis) (*models.WebhookDelivery, error) {
	event := models.WebhookEventAnalysisCompleted
	if analysis.Status != models.AnalysisStatusCompleted {
		event = models.WebhookEventAnalysisUnavailable
	}
	return s.Deliver(ctx, job.ID, job.CallbackURL, event, analysis)
}

// Deliver posts a signed event to callbackURL, retrying transient
// failures up to the configured number of retries
func (s *Service) Deliver(ctx context.Context, jobID, callbackURL, event string, data interface{}) (*models.WebhookDelivery, error) {
	if err := ValidateCallbackURL(callbackURL); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(models.WebhookEvent{
		Event:     event,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	delivery := &models.WebhookDelivery{
		ID:        uuid.New().String(),
		JobID:     jobID,
		URL:       callbackURL,
		Event:     event,
		Status:    models.WebhookDeliveryStatusPending,
		CreatedAt: time.Now(),
	}

	for attempt := 0; ; attempt++ {
		retryable := s.deliver(ctx, delivery, payload)
		s.logger.LogWebhookDelivery(jobID, callbackURL, attempt+1, delivery.StatusCode, s.attemptError(delivery))

		if delivery.Status == models.WebhookDeliveryStatusDelivered {
			metrics.RecordWebhookDelivery(models.WebhookDeliveryStatusDelivered)
			return delivery, nil
		}
		if !retryable || attempt >= s.maxRetries {
			break
		}

		delivery.RetryCount++
		if err := sleep(ctx, s.retryDelay(attempt)); err != nil {
			break
		}
	}

	delivery.Status = models.WebhookDeliveryStatusFailed
	now := time.Now()
	delivery.CompletedAt = &now
	metrics.RecordWebhookDelivery(models.WebhookDeliveryStatusFailed)

	return delivery, fmt.Errorf("%w: %s after %d attempt(s), last status %d",
		ErrDeliveryFailed, callbackURL, delivery.RetryCount+1, delivery.StatusCode)
}

// deliver makes one attempt and reports whether a failure is worth retrying
func (s *Service) deliver(ctx context.Context, delivery *models.WebhookDelivery, payload []byte) bool {
	req, err := http.NewRequestWithContext(ctx, "POST", delivery.URL, bytes.NewReader(payload))
	if err != nil {
		delivery.StatusCode = 0
		delivery.ResponseBody = fmt.Sprintf("Failed to create request: %v", err)
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "EmergencyPrep-Webhook/1.0")
	req.Header.Set(EventHeader, delivery.Event)
	req.Header.Set(DeliveryHeader, delivery.ID)

	if s.secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, s.secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		delivery.StatusCode = 0
		delivery.ResponseBody = fmt.Sprintf("Failed to send request: %v", err)
		return ctx.Err() == nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	delivery.StatusCode = resp.StatusCode
	delivery.ResponseBody = string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		delivery.Status = models.WebhookDeliveryStatusDelivered
		now := time.Now()
		delivery.CompletedAt = &now
		return false
	}

	// other client errors will not change on retry
	switch {
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return true
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false
	}
	return true
}

func (s *Service) attemptError(delivery *models.WebhookDelivery) error {
	if delivery.Status == models.WebhookDeliveryStatusDelivered {
		return nil
	}
	if delivery.StatusCode == 0 {
		return errors.New(delivery.ResponseBody)
	}
	return fmt.Errorf("unexpected status %d", delivery.StatusCode)
}

func (s *Service) retryDelay(attempt int) time.Duration {
	if len(s.retryDelays) == 0 {
		return 0
	}
	if attempt >= len(s.retryDelays) {
		return s.retryDelays[len(s.retryDelays)-1]
	}
	return s.retryDelays[attempt]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sign generates the HMAC-SHA256 signature for a webhook payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
