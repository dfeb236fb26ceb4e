package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"mokosmart/internal/config"
	"mokosmart/internal/constants"
	"mokosmart/internal/logger"
	"mokosmart/pkg/circuitbreaker"
	apperrors "mokosmart/pkg/errors"
	"mokosmart/pkg/logging"
	"mokosmart/pkg/metrics"
	"mokosmart/pkg/retry"
	"mokosmart/pkg/tracing"
)

const contentTypeJSON = "application/json"

type KafkaProducer struct {
	writer      messageWriter
	logger      logger.Logger
	policy      retry.Policy
	breaker     *circuitbreaker.Wrapper
	serviceName string
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return newKafkaProducer(w, cfg.Retry, log)
}

func newKafkaProducer(w messageWriter, retryCfg config.RetryConfig, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer:      w,
		logger:      log,
		policy:      retry.PolicyFromConfig(retryCfg),
		serviceName: constants.ServiceName,
	}
}

// WithCircuitBreaker guards writes with cb. An open breaker fails a publish
// immediately without retrying.
func (p *KafkaProducer) WithCircuitBreaker(cb *circuitbreaker.Wrapper) *KafkaProducer {
	p.breaker = cb
	return p
}

// CircuitBreaker returns the breaker guarding writes, or nil.
func (p *KafkaProducer) CircuitBreaker() *circuitbreaker.Wrapper {
	return p.breaker
}

func (p *KafkaProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return apperrors.ErrValidation.WithCause(fmt.Errorf("failed to marshal message: %w", err)).AsFatal()
	}

	headers := []kafka.Header{{Key: "content-type", Value: []byte(contentTypeJSON)}}
	headers = tracing.InjectTraceContext(ctx, headers)

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   body,
		Headers: headers,
		Time:    time.Now(),
	}

	start := time.Now()
	err = retry.RetryWithCallback(ctx, p.policy, func() error {
		return p.write(ctx, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(p.serviceName, topic).Inc()
		p.logger.WarnwCtx(ctx, "Retrying kafka publish",
			"attempt", attempt,
			"max_attempts", p.policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(p.serviceName, topic)
	metrics.ObserveKafkaMessageSize(p.serviceName, topic, "out", len(body))
	metrics.ObserveKafkaWriteDuration(p.serviceName, topic, time.Since(start))
	return nil
}

func (p *KafkaProducer) write(ctx context.Context, msg kafka.Message) error {
	if p.breaker == nil {
		return p.writeOnce(ctx, msg)
	}

	_, err := p.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, p.writeOnce(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.ErrServiceUnavailable.WithCause(err).AsFatal()
	}
	return err
}

func (p *KafkaProducer) writeOnce(ctx context.Context, msg kafka.Message) error {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if errors.Is(err, kafka.MessageSizeTooLarge) {
			return apperrors.ErrValidation.WithCause(err).AsFatal()
		}
		return apperrors.ErrServiceUnavailable.WithCause(err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads raw records from one topic with a consumer group.
type KafkaConsumer struct {
	brokers     []string
	groupID     string
	policy      retry.Policy
	logger      logger.Logger
	serviceName string

	newReader func(topic string) messageReader

	mu     sync.Mutex
	reader messageReader
}

func NewKafkaConsumer(brokers []string, groupID string, retryCfg config.RetryConfig, log logger.Logger) *KafkaConsumer {
	c := &KafkaConsumer{
		brokers:     brokers,
		groupID:     groupID,
		policy:      retry.PolicyFromConfig(retryCfg),
		logger:      log,
		serviceName: constants.ServiceName,
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.brokers,
			GroupID:  c.groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return c
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

// Consume blocks until ctx is done. Every fetched record is committed once
// handled, including records the handler failed on.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.brokers,
		"group_id", c.groupID,
		"service_name", c.serviceName,
	)

	reader := c.newReader(topic)
	c.mu.Lock()
	c.reader = reader
	c.mu.Unlock()

	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(consumeCtx, "Started consuming", "topic", topic)

	for {
		fetchStart := time.Now()
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(consumeCtx, "Stopped consuming",
					"topic", topic,
					"reason", "context canceled",
				)
				return ctx.Err()
			}
			c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
				"error", err,
				"topic", topic,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		metrics.IncKafkaMessagesRead(c.serviceName, topic)
		metrics.ObserveKafkaMessageSize(c.serviceName, topic, "in", len(m.Value))
		metrics.ObserveKafkaReadDuration(c.serviceName, topic, time.Since(fetchStart))

		msgCtx, span := tracing.StartSpanFromKafkaMessage(consumeCtx, "kafka.consume", m.Headers)
		msgCtx = tracing.WithLogTraceID(msgCtx, span)
		if err := c.processMessageWithRetry(msgCtx, m, handler, topic); err != nil {
			c.logger.ErrorwCtx(msgCtx, "Failed to process message, skipping",
				"error", err,
				"topic", topic,
				"partition", m.Partition,
				"offset", m.Offset,
			)
		}
		span.End()

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
				"error", err,
				"topic", topic,
			)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, m kafka.Message, handler HandlerFunc, topic string) error {
	return retry.RetryWithCallback(ctx, c.policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = apperrors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, m)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}
