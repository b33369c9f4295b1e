package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/config"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

const (
	AnalysisQueueName = "analysis_jobs"
	ExchangeName      = "emergencyprep"
)

// ErrPermanent marks a job failure that retrying cannot fix
var ErrPermanent = errors.New("permanent job failure")

// Permanent wraps err so the job goes straight to the dead letter queue
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// ErrDeliveriesClosed is returned by Consume when the broker closes the
// delivery channel before the context is cancelled
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Handler processes one analysis job
type Handler func(ctx context.Context, job *models.AnalysisJob) error

// Queue carries analysis jobs between the API and the workers
type Queue struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	maxAttempts int
	logger      *logging.Logger

	// amqp channels are not safe for concurrent publishing
	publishMu sync.Mutex
}

// New connects to RabbitMQ and declares the job, retry and dead letter
// topology
func New(cfg config.QueueConfig, maxAttempts int, logger *logging.Logger) (*Queue, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	q := &Queue{
		conn:        conn,
		channel:     channel,
		maxAttempts: maxAttempts,
		logger:      logger,
	}

	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	if err := q.SetupDeadLetterQueue(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		AnalysisQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = q.channel.QueueBind(
		AnalysisQueueName,
		AnalysisQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Ping reports whether the broker connection and channel are still open
func (q *Queue) Ping(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("connection closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("channel closed")
	}
	return nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishJob publishes an analysis job
func (q *Queue) PublishJob(ctx context.Context, job *models.AnalysisJob) error {
	if err := q.publish(ctx, ExchangeName, AnalysisQueueName, job, nil, ""); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	metrics.RecordJobPublished()
	return nil
}

func (q *Queue) publish(ctx context.Context, exchange, key string, job *models.AnalysisJob, headers amqp.Table, expiration string) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.publishBody(ctx, exchange, key, body, headers, expiration)
}

func (q *Queue) publishBody(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, expiration string) error {
	q.publishMu.Lock()
	defer q.publishMu.Unlock()

	return q.channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
			Expiration:   expiration,
		},
	)
}

// Consume runs workers goroutines that pass jobs to handler. It blocks
// until ctx is cancelled and all in-flight jobs have finished, or returns
// ErrDeliveriesClosed once every worker has stopped because the broker
// closed the delivery channel.
func (q *Queue) Consume(ctx context.Context, workers int, handler Handler) error {
	if err := q.channel.Qos(workers, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := q.channel.Consume(
		AnalysisQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	return q.runWorkers(ctx, workers, deliveries, handler)
}

func (q *Queue) runWorkers(ctx context.Context, workers int, deliveries <-chan amqp.Delivery, handler Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.worker(ctx, id, deliveries, handler)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		q.logger.Info("Context cancelled, waiting for workers to finish")
		<-done
		return nil
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		return ErrDeliveriesClosed
	}
}

func (q *Queue) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery, handler Handler) {
	logger := q.logger.WithWorkerID(fmt.Sprintf("%d", id))
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Info("Delivery channel closed")
				return
			}
			q.processDelivery(ctx, d, handler, logger)
		}
	}
}

func (q *Queue) processDelivery(ctx context.Context, d amqp.Delivery, handler Handler, logger *logging.Logger) {
	var job models.AnalysisJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.ErrorWithErr("Malformed job message", err)
		if err := q.publishRawToDeadLetterQueue(ctx, d.Body, "malformed message"); err != nil {
			d.Nack(false, true)
			return
		}
		d.Ack(false)
		return
	}

	queued := -1.0
	if !d.Timestamp.IsZero() {
		queued = time.Since(d.Timestamp).Seconds()
	}

	logger.WithJobID(job.ID).WithField("attempt", job.Attempt).Debug("Job received")

	err := handler(ctx, &job)
	switch decide(&job, err, q.maxAttempts) {
	case dispositionAck:
		metrics.RecordJobProcessed("completed", queued)
		d.Ack(false)
	case dispositionRetry:
		metrics.RecordJobProcessed("retried", queued)
		if perr := q.PublishToRetryQueue(ctx, &job); perr != nil {
			logger.ErrorWithErr("Failed to schedule retry", perr)
			d.Nack(false, true)
			return
		}
		d.Ack(false)
	case dispositionDeadLetter:
		metrics.RecordJobProcessed("failed", queued)
		if perr := q.PublishToDeadLetterQueue(ctx, &job, err.Error()); perr != nil {
			logger.ErrorWithErr("Failed to dead-letter job", perr)
			d.Nack(false, true)
			return
		}
		d.Ack(false)
	}
}

type disposition int

const (
	dispositionAck disposition = iota
	dispositionRetry
	dispositionDeadLetter
)

func decide(job *models.AnalysisJob, err error, maxAttempts int) disposition {
	switch {
	case err == nil:
		return dispositionAck
	case errors.Is(err, ErrPermanent):
		return dispositionDeadLetter
	case job.Attempt+1 >= maxAttempts:
		return dispositionDeadLetter
	default:
		return dispositionRetry
	}
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(AnalysisQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}

// ReportDepth publishes the job and dead letter queue depths as metrics
// every interval until ctx is done
func (q *Queue) ReportDepth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.updateDepth()
		}
	}
}

func (q *Queue) updateDepth() {
	depth, err := q.GetQueueDepth()
	if err != nil {
		q.logger.WithError(err).Warn("Failed to read queue depth")
		return
	}
	metrics.RecordQueueDepth(AnalysisQueueName, depth)

	dlqDepth, err := q.GetDLQDepth()
	if err != nil {
		q.logger.WithError(err).Warn("Failed to read DLQ depth")
		return
	}
	metrics.RecordQueueDepth(DeadLetterQueueName, dlqDepth)
}
