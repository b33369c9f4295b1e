package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

const (
	DeadLetterQueueName    = "analysis_jobs_dlq"
	DeadLetterExchangeName = "emergencyprep_dlq"
	RetryQueueName         = "analysis_jobs_retry"
)

// SetupDeadLetterQueue declares the dead letter queue and the retry queue.
// Retried messages wait in the retry queue until their expiration and are
// then dead-lettered back onto the job queue.
func (q *Queue) SetupDeadLetterQueue() error {
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		DeadLetterQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = q.channel.QueueBind(
		DeadLetterQueueName,
		DeadLetterQueueName,
		DeadLetterExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": AnalysisQueueName,
	}

	_, err = q.channel.QueueDeclare(
		RetryQueueName,
		true,
		false,
		false,
		false,
		retryArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	q.logger.Info("Dead letter queue infrastructure set up")
	return nil
}

// PublishToRetryQueue schedules another attempt of job after a backoff
func (q *Queue) PublishToRetryQueue(ctx context.Context, job *models.AnalysisJob) error {
	retry := *job
	retry.Attempt++
	delay := backoffDelay(job.Attempt)

	headers := amqp.Table{
		"x-retry-count": int32(retry.Attempt),
	}

	err := q.publish(ctx, "", RetryQueueName, &retry, headers, fmt.Sprintf("%d", delay.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to publish to retry queue: %w", err)
	}

	q.logger.LogJobEvent(job.ID, "retry_scheduled", "pending", map[string]interface{}{
		"attempt": retry.Attempt,
		"delay":   delay.String(),
	})
	return nil
}

// PublishToDeadLetterQueue parks a failed job for manual inspection
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, job *models.AnalysisJob, reason string) error {
	err := q.publish(ctx, DeadLetterExchangeName, DeadLetterQueueName, job, failureHeaders(reason), "")
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	q.logger.LogJobEvent(job.ID, "dead_lettered", "failed", map[string]interface{}{
		"reason":  reason,
		"attempt": job.Attempt,
	})
	return nil
}

func (q *Queue) publishRawToDeadLetterQueue(ctx context.Context, body []byte, reason string) error {
	err := q.publishBody(ctx, DeadLetterExchangeName, DeadLetterQueueName, body, failureHeaders(reason), "")
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}
	return nil
}

func failureHeaders(reason string) amqp.Table {
	return amqp.Table{
		"x-failure-reason": reason,
		"x-failed-at":      time.Now().Format(time.RFC3339),
	}
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(DeadLetterQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// backoffDelay doubles from 10s per attempt, capped at 5 minutes
func backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		return 5 * time.Minute
	}

	delay := 10 * time.Second * time.Duration(1<<attempt)
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}
