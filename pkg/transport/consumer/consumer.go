// Package consumer receives survey requests from RabbitMQ
package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// EXCHANGE_TYPE routes requests to the queue by their request type
	EXCHANGE_TYPE = "direct"

	DEFAULT_RECONNECT_DELAY = 5 * time.Second
)

// Consumer reads request events from the request queue. It reconnects on its
// own when the broker goes away.
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *logger.Logger
	cfg         *config.Config
	routingKeys []string
	mu          sync.RWMutex
	isConnected bool
}

// Init declares the request exchange and queue and binds the queue to every
// request type the service handles
func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Consumer, error) {
	if cfg == nil || logger == nil || conn == nil {
		return nil, fmt.Errorf("invalid parameters: cfg, logger, and conn cannot be nil")
	}

	consumer := &Consumer{
		conn:   conn,
		logger: logger,
		cfg:    cfg,
		routingKeys: []string{
			cfg.Reqs.CreateRequestType,
			cfg.Reqs.UpdateRequestType,
			cfg.Reqs.DeleteRequestType,
			cfg.Reqs.SubmitRequestType,
		},
		isConnected: true,
	}

	if err := consumer.setup(); err != nil {
		consumer.cleanup()
		return nil, err
	}

	return consumer, nil
}

// setup opens a channel and declares the topology
func (c *Consumer) setup() error {
	channel, err := c.conn.Channel()
	if err != nil {
		c.logger.Error("failed to open channel", zap.Error(err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	c.channel = channel

	if err = c.channel.ExchangeDeclare(
		c.cfg.Exchange.Request,
		EXCHANGE_TYPE,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		c.logger.Error("failed to declare exchange",
			zap.String("exchange", c.cfg.Exchange.Request),
			zap.Error(err))
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err = c.channel.QueueDeclare(
		c.cfg.Queue.Request,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		c.logger.Error("failed to declare queue",
			zap.String("queue", c.cfg.Queue.Request),
			zap.Error(err))
		return fmt.Errorf("failed to declare queue %s: %w", c.cfg.Queue.Request, err)
	}

	for _, key := range c.routingKeys {
		if err = c.channel.QueueBind(
			c.cfg.Queue.Request,
			key,
			c.cfg.Exchange.Request,
			false,
			nil,
		); err != nil {
			c.logger.Error("failed to bind queue to exchange",
				zap.String("queue", c.cfg.Queue.Request),
				zap.String("routing_key", key),
				zap.Error(err))
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return nil
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanup()
	return nil
}

// IsHealthy checks if the consumer connection is healthy
func (c *Consumer) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// ConsumeMessages delivers decoded events to outputChan until ctx is done
func (c *Consumer) ConsumeMessages(ctx context.Context, outputChan chan<- entity.Event) {
	for ctx.Err() == nil {
		if !c.IsHealthy() {
			c.logger.Warn("connection is unhealthy, attempting to reconnect...")
			if err := c.reconnect(); err != nil {
				c.logger.Error("failed to reconnect", zap.Error(err))
				sleep(ctx, DEFAULT_RECONNECT_DELAY)
				continue
			}
		}

		if err := c.startConsuming(ctx, outputChan); err != nil {
			c.logger.Error("consuming stopped with error", zap.Error(err))
			sleep(ctx, DEFAULT_RECONNECT_DELAY)
		}
	}

	c.logger.Info("consumer stopped")
}

func (c *Consumer) startConsuming(ctx context.Context, outputChan chan<- entity.Event) error {
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()

	msgs, err := channel.ConsumeWithContext(ctx,
		c.cfg.Queue.Request, // queue
		"",                  // consumer
		false,               // auto-ack
		false,               // exclusive
		false,               // no-local
		false,               // no-wait
		nil,
	)
	if err != nil {
		c.mu.Lock()
		c.isConnected = false
		c.mu.Unlock()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("successfully connected to RabbitMQ, waiting for messages...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.mu.Lock()
				c.isConnected = false
				c.mu.Unlock()
				return fmt.Errorf("message channel closed")
			}
			c.processMessage(ctx, msg, outputChan)
		}
	}
}

// processMessage decodes one delivery and hands it on. Undecodable messages
// are rejected without requeue so they do not loop forever.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery, outputChan chan<- entity.Event) {
	event, err := Decode(msg.Body)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			zap.Error(err),
			zap.ByteString("body", msg.Body))
		msg.Nack(false, false)
		return
	}

	c.logger.Debug("received new event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.Time("timestamp", event.Timestamp))

	select {
	case outputChan <- *event:
		msg.Ack(false)
	case <-ctx.Done():
		msg.Nack(false, true)
	}
}

// Decode parses and validates a request event
func Decode(body []byte) (*entity.Event, error) {
	event := new(entity.Event)
	if err := sonic.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return event, nil
}

func (c *Consumer) reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanup()

	conn, err := amqp.Dial(c.cfg.Urls.Rabbitmq)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	c.conn = conn

	if err = c.setup(); err != nil {
		c.cleanup()
		return err
	}

	c.isConnected = true
	c.logger.Info("successfully reconnected to RabbitMQ")
	return nil
}

// cleanup closes the channel and connection; callers hold mu or own c exclusively
func (c *Consumer) cleanup() {
	c.isConnected = false

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
