//go:build integration

package broker

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"mokosmart/internal/config"
	"mokosmart/internal/logger"
	"mokosmart/pkg/health"
	"mokosmart/pkg/raddec"
)

const containerStartupTimeout = 60 * time.Second

func setupKafka(t *testing.T) []string {
	t.Helper()

	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), containerStartupTimeout)
	defer cancel()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("mokosmart-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	t.Cleanup(func() {
		testcontainers.TerminateContainer(container)
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}
	return brokers
}

func TestKafkaIntegration_SinkPublishesRaddecs(t *testing.T) {
	brokers := setupKafka(t)
	cfg := config.KafkaConfig{
		Brokers:             brokers,
		RaddecTopic:         "raddecs_it",
		InfrastructureTopic: "infrastructure_it",
		Retry:               config.RetryConfig{MaxAttempts: 5, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second, Multiplier: 2},
	}

	require.NoError(t, health.NewKafkaChecker(brokers).Check(context.Background()))

	producer := NewKafkaProducer(cfg, logger.NopLogger())
	defer producer.Close()
	sink := NewKafkaSink(producer, cfg.RaddecTopic, cfg.InfrastructureTopic)

	ts := int64(1609492216000)
	r := raddec.New("abdf01fc9e98", raddec.TypeEUI48, &ts)
	r.AddDecoding("112233445566", raddec.TypeEUI48, -78)
	require.NoError(t, sink.HandleRaddec(context.Background(), r))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     cfg.RaddecTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, "abdf01fc9e98/2", string(m.Key))
	var got raddec.Raddec
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, "abdf01fc9e98", got.TransmitterID)
	require.NotNil(t, got.Timestamp)
	assert.Equal(t, ts, *got.Timestamp)
}

func TestKafkaIntegration_ConsumerReceivesPublishedRecords(t *testing.T) {
	brokers := setupKafka(t)
	retryCfg := config.RetryConfig{MaxAttempts: 5, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second, Multiplier: 2}
	topic := "gateway_capture_it"

	producer := NewKafkaProducer(config.KafkaConfig{Brokers: brokers, Retry: retryCfg}, logger.NopLogger())
	defer producer.Close()
	require.NoError(t, producer.Publish(context.Background(), topic, "112233445566", map[string]interface{}{"msg_id": 3003}))

	consumer := NewKafkaConsumer(brokers, "mokosmart-it", retryCfg, logger.NopLogger())
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	received := make(chan kafka.Message, 1)
	go consumer.Consume(ctx, topic, func(ctx context.Context, m kafka.Message) error {
		select {
		case received <- m:
		default:
		}
		return nil
	})

	select {
	case m := <-received:
		assert.JSONEq(t, `{"msg_id": 3003}`, string(m.Value))
	case <-ctx.Done():
		t.Fatal("timed out waiting for record")
	}
}
