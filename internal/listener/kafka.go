package listener

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"mokosmart/internal/broker"
	"mokosmart/internal/decoder"
	"mokosmart/internal/logger"
)

const kafkaListenerName = "kafka"

// KafkaListener replays gateway payloads that were captured onto a Kafka
// topic. Each record value is one MQTT payload.
type KafkaListener struct {
	consumer broker.Consumer
	topic    string
	opts     decoder.Options
	logger   logger.Logger
	now      func() time.Time
}

func NewKafkaListener(consumer broker.Consumer, topic string, opts decoder.Options, log logger.Logger) *KafkaListener {
	return &KafkaListener{
		consumer: consumer,
		topic:    topic,
		opts:     opts,
		logger:   log,
		now:      time.Now,
	}
}

func (l *KafkaListener) Name() string {
	return kafkaListenerName
}

func (l *KafkaListener) origin() string {
	return "kafka://" + l.topic
}

func (l *KafkaListener) Run(ctx context.Context, h Handler) error {
	l.logger.Infow("Consuming gateway messages from Kafka", "topic", l.topic)

	err := l.consumer.Consume(ctx, l.topic, func(ctx context.Context, m kafka.Message) error {
		dispatch(ctx, l.logger, h, m.Value, l.origin(), l.now(), l.opts)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
