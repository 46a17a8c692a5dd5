package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the work queue the worker consumes
	DefaultQueueName = "smart_notes_jobs"
	// DefaultWaitQueueName holds delayed jobs until their TTL expires
	DefaultWaitQueueName = "smart_notes_jobs_wait"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "smart_notes_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "smart_notes"

	routingKeyJobs = "jobs"
	routingKeyWait = "wait"
	routingKeyDLQ  = "dlq"
)

// RabbitMQQueue implements JobQueue using RabbitMQ. Delayed jobs are
// parked in a wait queue with a per-message TTL; on expiry they are
// dead-lettered back onto the work queue.
type RabbitMQQueue struct {
	conn *amqp.Connection
	log  *zap.Logger

	mu      sync.Mutex // guards channel
	channel *amqp.Channel

	queueName     string
	waitQueueName string
	dlqName       string
	exchangeName  string
	now           func() time.Time
}

// NewRabbitMQQueue connects to amqpURL and declares the exchange and queues.
func NewRabbitMQQueue(amqpURL string, log *zap.Logger) (*RabbitMQQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:          conn,
		log:           log,
		channel:       ch,
		queueName:     DefaultQueueName,
		waitQueueName: DefaultWaitQueueName,
		dlqName:       DefaultDLQName,
		exchangeName:  DefaultExchangeName,
		now:           time.Now,
	}
	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}
	return q, nil
}

type queueDecl struct {
	name       string
	routingKey string
	args       amqp.Table
}

func (q *RabbitMQQueue) declarations() []queueDecl {
	return []queueDecl{
		{name: q.dlqName, routingKey: routingKeyDLQ},
		{name: q.queueName, routingKey: routingKeyJobs, args: amqp.Table{
			"x-dead-letter-exchange":    q.exchangeName,
			"x-dead-letter-routing-key": routingKeyDLQ,
		}},
		{name: q.waitQueueName, routingKey: routingKeyWait, args: amqp.Table{
			"x-dead-letter-exchange":    q.exchangeName,
			"x-dead-letter-routing-key": routingKeyJobs,
		}},
	}
}

func (q *RabbitMQQueue) setup() error {
	err := q.channel.ExchangeDeclare(
		q.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	for _, d := range q.declarations() {
		if _, err := q.channel.QueueDeclare(d.name, true, false, false, false, d.args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", d.name, err)
		}
		if err := q.channel.QueueBind(d.name, d.routingKey, q.exchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", d.name, err)
		}
	}
	return nil
}

// publishing builds the AMQP message for job and picks its routing key.
func (q *RabbitMQQueue) publishing(job *Job) (amqp.Publishing, string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, "", fmt.Errorf("failed to marshal job: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Type:         string(job.Type),
		Timestamp:    q.now().UTC(),
	}

	if wait := job.Wait(q.now()); wait > 0 {
		ms := wait.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		msg.Expiration = strconv.FormatInt(ms, 10)
		return msg, routingKeyWait, nil
	}
	return msg, routingKeyJobs, nil
}

// Enqueue adds a job to the queue
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	msg, key, err := q.publishing(job)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.PublishWithContext(ctx, q.exchangeName, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

type amqpDelivery struct {
	job      *Job
	delivery amqp.Delivery
}

func (d *amqpDelivery) Job() *Job { return d.job }

func (d *amqpDelivery) Ack() error { return d.delivery.Ack(false) }

func (d *amqpDelivery) Nack(requeue bool) error { return d.delivery.Nack(false, requeue) }

// Consume delivers jobs from the work queue on a dedicated channel.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetch int) (<-chan Delivery, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}
	if err := consumeCh.Qos(prefetch, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	out := make(chan Delivery, prefetch)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					errs <- errors.New("delivery channel closed")
					return
				}
				msg, ok := q.accept(ctx, d)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				case out <- msg:
				}
			}
		}
	}()

	return out, errs, nil
}

// accept decodes d and settles the deliveries that never reach the caller:
// undecodable or expired jobs are dead-lettered, early ones are parked again.
func (q *RabbitMQQueue) accept(ctx context.Context, d amqp.Delivery) (Delivery, bool) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.log.Warn("job_decode_failed",
			zap.String("message_id", d.MessageId),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return nil, false
	}

	now := q.now()
	if job.IsExpired(now) {
		q.log.Info("job_expired", zap.String("job_id", job.ID.String()))
		_ = d.Nack(false, false)
		return nil, false
	}
	if !job.ShouldProcess(now) {
		if err := q.Enqueue(ctx, &job); err != nil {
			_ = d.Nack(false, true)
			return nil, false
		}
		_ = d.Ack(false)
		return nil, false
	}
	return &amqpDelivery{job: &job, delivery: d}, true
}

// PurgeOlderThan drops dead-lettered jobs published more than retention ago.
// The DLQ is FIFO, so it stops at the first younger message.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("failed to open purge channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	cutoff := q.now().Add(-retention)
	purged := 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		msg, ok, err := ch.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}
		if !msg.Timestamp.IsZero() && msg.Timestamp.After(cutoff) {
			_ = msg.Nack(false, true)
			return purged, nil
		}
		if err := msg.Ack(false); err != nil {
			return purged, fmt.Errorf("failed to drop DLQ message: %w", err)
		}
		purged++
	}
}

// HealthCheck reports whether the connection and publishing channel are open.
func (q *RabbitMQQueue) HealthCheck(context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	q.mu.Lock()
	if q.channel != nil {
		err = q.channel.Close()
	}
	q.mu.Unlock()
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)
