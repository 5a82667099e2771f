package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tedkimdev/nft-staking/internal/config"
	"go.uber.org/zap"
)

type Publisher interface {
	PushStakeEvent(ctx context.Context, ev *StakeEvent) error
	Shutdown()
}

var ErrNotConfirmed = errors.New("broker did not confirm the message")

// QueueManager publishes stake events to a durable RabbitMQ queue with
// publisher confirms. A broken connection is re-dialed on the next push.
type QueueManager struct {
	cfg    *config.QueueConfig
	logger *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewQueueManager(cfg *config.QueueConfig, logger *zap.Logger) (*QueueManager, error) {
	qm := &QueueManager{
		cfg:    cfg,
		logger: logger.With(zap.String("queue", cfg.QueueName)),
	}

	qm.mu.Lock()
	defer qm.mu.Unlock()
	if err := qm.connect(); err != nil {
		return nil, err
	}

	return qm, nil
}

func (qm *QueueManager) dialURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s", qm.cfg.QueueUser, qm.cfg.QueuePassword, qm.cfg.Url)
}

// connect must be called with mu held
func (qm *QueueManager) connect() error {
	conn, err := amqp.Dial(qm.dialURL())
	if err != nil {
		return fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	_, err = ch.QueueDeclare(
		qm.cfg.QueueName,
		true,  // durable
		false, // auto delete
		false, // exclusive
		false, // no wait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", qm.cfg.QueueName, err)
	}

	qm.conn = conn
	qm.channel = ch
	qm.logger.Info("connected to rabbitmq")
	return nil
}

func (qm *QueueManager) PushStakeEvent(ctx context.Context, ev *StakeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, qm.cfg.PublishTimeout)
	defer cancel()

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.conn == nil || qm.conn.IsClosed() || qm.channel.IsClosed() {
		qm.logger.Warn("rabbitmq connection lost, reconnecting")
		if qm.conn != nil {
			_ = qm.conn.Close()
		}
		if err := qm.connect(); err != nil {
			return err
		}
	}

	confirm, err := qm.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		"", // default exchange routes by queue name
		qm.cfg.QueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Unix(ev.Timestamp, 0),
			Type:         string(ev.EventType),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.EventType, err)
	}

	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for confirm of %s event: %w", ev.EventType, err)
	}
	if !ok {
		return ErrNotConfirmed
	}

	qm.logger.Debug("event published",
		zap.String("event_type", string(ev.EventType)),
		zap.String("owner", ev.Owner),
		zap.String("asset", ev.Asset),
	)
	return nil
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	qm.logger.Info("shutting down queue manager")
	if qm.conn != nil && !qm.conn.IsClosed() {
		if err := qm.conn.Close(); err != nil {
			qm.logger.Warn("failed to close rabbitmq connection", zap.Error(err))
		}
	}
}

// NoopPublisher drops every event. Used when no queue is configured.
type NoopPublisher struct{}

func (NoopPublisher) PushStakeEvent(context.Context, *StakeEvent) error { return nil }

func (NoopPublisher) Shutdown() {}

var (
	_ Publisher = (*QueueManager)(nil)
	_ Publisher = NoopPublisher{}
)
