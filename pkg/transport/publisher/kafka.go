package publisher

import (
	"context"
	"time"

	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic, keyed by survey id so the
// events of one survey stay ordered within a partition
type KafkaPublisher struct {
	writer  messageWriter
	logger  *logger.Logger
	timeout time.Duration
}

func InitKafka(brokers []string, topic string, logger *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) Publish(ctx context.Context, payload any, eventType, key string) error {
	event, body, err := encodeEvent(payload, eventType)
	if err != nil {
		p.logger.Error("error encode event for publish",
			zap.String("event_type", eventType),
			zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
	if err != nil {
		p.logger.Error("failed to write message to Kafka",
			zap.String("event_id", event.ID),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	p.logger.Debug("produced event",
		zap.String("event_id", event.ID),
		zap.String("event_type", eventType),
		zap.String("key", key))

	return nil
}
