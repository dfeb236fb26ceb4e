package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.URL)
	assert.Equal(t, "mokosmart/#", cfg.MQTT.Topic)
	assert.Equal(t, "mokosmart-bridge", cfg.MQTT.ClientID)
	assert.True(t, cfg.Listeners.MQTT.Enabled)
	assert.False(t, cfg.Listeners.Test.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Listeners.Test.MessagePeriod)
	assert.Equal(t, "raddecs", cfg.Kafka.RaddecTopic)
	assert.True(t, cfg.Emission.Log)
	assert.False(t, cfg.Emission.Kafka)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
logging:
  level: debug
  format: logfmt
mqtt:
  url: tcp://broker:1883
  topic: gateways/+/publish
  qos: 1
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  raddec_topic: ble.raddecs
emission:
  kafka: true
  filter: "rssi > -90"
listeners:
  test:
    enabled: true
    message_period: 2s
decoding:
  options:
    normalise: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "logfmt", cfg.Logging.Format)
	assert.Equal(t, "gateways/+/publish", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "ble.raddecs", cfg.Kafka.RaddecTopic)
	assert.Equal(t, "infrastructure_messages", cfg.Kafka.InfrastructureTopic)
	assert.Equal(t, "rssi > -90", cfg.Emission.Filter)
	assert.Equal(t, 2*time.Second, cfg.Listeners.Test.MessagePeriod)
	assert.Equal(t, true, cfg.Decoding.Options["normalise"])
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092 , kafka-2:9092 ")
	t.Setenv("EMISSION_KAFKA", "true")
	t.Setenv("MQTT_TOPIC", "site-a/#")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Emission.Kafka)
	assert.Equal(t, "site-a/#", cfg.MQTT.Topic)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_KafkaEmissionWithoutBrokers(t *testing.T) {
	path := writeConfig(t, `
emission:
  kafka: true
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}
