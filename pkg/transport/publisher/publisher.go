// Package publisher emits domain events to the message bus
package publisher

import (
	"context"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EXCHANGE_TYPE routes events by their type, so consumers can bind to the ones they need
const EXCHANGE_TYPE = "topic"

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher writes events to a RabbitMQ exchange
type Publisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	logger   *logger.Logger
	exchange string
}

func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Publisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		logger.Error("error opening channel", zap.Error(err))
		conn.Close()
		return nil, err
	}

	if err = channel.ExchangeDeclare(
		cfg.Exchange.Output,
		EXCHANGE_TYPE,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		logger.Error("error declaring exchange",
			zap.String("exchange", cfg.Exchange.Output),
			zap.Error(err))
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  channel,
		logger:   logger,
		exchange: cfg.Exchange.Output,
	}, nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Error("error closing channel", zap.Error(err))
	}
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Publish wraps payload in an event of the given type and sends it with the
// type as routing key. key identifies the survey and travels as a header.
func (p *Publisher) Publish(ctx context.Context, payload any, eventType, key string) error {
	event, body, err := encodeEvent(payload, eventType)
	if err != nil {
		p.logger.Error("error encode event for publish",
			zap.String("event_type", eventType),
			zap.Error(err))
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		eventType,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.ID,
			Type:        eventType,
			Headers:     amqp.Table{"survey_id": key},
			Body:        body,
			Timestamp:   event.Timestamp,
		},
	)
	if err != nil {
		p.logger.Error("error publishing event",
			zap.String("event_id", event.ID),
			zap.String("event_type", eventType),
			zap.Error(err))
		return err
	}

	p.logger.Info("successfully published event",
		zap.String("event_id", event.ID),
		zap.String("event_type", eventType))

	return nil
}

func encodeEvent(payload any, eventType string) (*entity.Event, []byte, error) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	event := entity.NewEvent(eventType, data)
	event.Timestamp = event.Timestamp.UTC().Truncate(time.Millisecond)

	body, err := sonic.Marshal(event)
	if err != nil {
		return nil, nil, err
	}

	return event, body, nil
}
