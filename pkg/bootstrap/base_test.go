package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokosmart/internal/config"
	"mokosmart/internal/logger"
)

func TestBase_InitBrokerOnlyCreatesWhatIsEnabled(t *testing.T) {
	cfg := &config.Config{}
	b := NewBase(cfg, logger.NopLogger())

	require.NoError(t, b.InitBroker("mokosmart-bridge"))

	assert.Nil(t, b.Producer)
	assert.Nil(t, b.Consumer)
}

func TestBase_InitBrokerWithEmissionAndListener(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Emission.Kafka = true
	cfg.Listeners.Kafka = config.KafkaListenerConfig{Enabled: true, Topic: "capture", GroupID: "bridge"}
	b := NewBase(cfg, logger.NopLogger())

	require.NoError(t, b.InitBroker("mokosmart-bridge"))

	assert.NotNil(t, b.Producer)
	assert.NotNil(t, b.Consumer)
	assert.Empty(t, b.ShutdownBroker())
}

func TestBase_InitBrokerRequiresBrokersForListener(t *testing.T) {
	cfg := &config.Config{}
	cfg.Emission.Kafka = true
	cfg.Listeners.Kafka.Enabled = true
	b := NewBase(cfg, logger.NopLogger())

	err := b.InitBroker("mokosmart-bridge")

	require.Error(t, err)
	assert.Nil(t, b.Consumer)
}

func TestBase_ShutdownCollectsErrors(t *testing.T) {
	b := NewBase(&config.Config{}, logger.NopLogger())

	called := false
	err := b.Shutdown(context.Background(), func(ctx context.Context) []error {
		called = true
		return []error{errors.New("tracer flush failed")}
	})

	assert.True(t, called)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracer flush failed")
}
