package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"mokosmart/internal/constants"
)

// LoadConfig reads configFile (YAML) and applies environment overrides. An
// empty configFile loads defaults and environment only.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("mqtt.url", constants.DefaultMQTTURL)
	viper.SetDefault("mqtt.topic", constants.DefaultMQTTTopic)
	viper.SetDefault("mqtt.client_id", constants.ServiceName)
	viper.SetDefault("mqtt.qos", 0)
	viper.SetDefault("mqtt.connect_timeout", "10s")
	viper.SetDefault("mqtt.keep_alive", "30s")

	viper.SetDefault("kafka.raddec_topic", constants.DefaultRaddecTopic)
	viper.SetDefault("kafka.infrastructure_topic", constants.DefaultInfrastructureTopic)
	viper.SetDefault("kafka.retry.max_attempts", 3)
	viper.SetDefault("kafka.retry.initial_interval", "100ms")
	viper.SetDefault("kafka.retry.max_interval", "5s")
	viper.SetDefault("kafka.retry.multiplier", 2.0)
	viper.SetDefault("kafka.retry.max_elapsed_time", "30s")

	viper.SetDefault("listeners.mqtt.enabled", true)
	viper.SetDefault("listeners.test.enabled", false)
	viper.SetDefault("listeners.test.message_period", constants.DefaultTestMessagePeriod.String())
	viper.SetDefault("listeners.kafka.group_id", constants.ServiceName)

	viper.SetDefault("emission.log", true)

	viper.SetDefault("api.rate_limit.rps", 10.0)
	viper.SetDefault("api.rate_limit.burst", 20)
	viper.SetDefault("api.rate_limit.cleanup_interval", 60)
	viper.SetDefault("api.rate_limit.max_age", 300)

	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "30s")
	viper.SetDefault("circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("circuit_breaker.min_requests", 5)

	viper.SetDefault("tracing.service_name", constants.ServiceName)
	viper.SetDefault("tracing.sampler.type", "always_on")
	viper.SetDefault("tracing.sampler.param", 1.0)
}

func bindEnvVariables() {
	viper.BindEnv("mqtt.url", "MQTT_URL")
	viper.BindEnv("mqtt.topic", "MQTT_TOPIC")
	viper.BindEnv("mqtt.client_id", "MQTT_CLIENT_ID")
	viper.BindEnv("mqtt.username", "MQTT_USERNAME")
	viper.BindEnv("mqtt.password", "MQTT_PASSWORD")

	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.raddec_topic", "KAFKA_RADDEC_TOPIC")
	viper.BindEnv("kafka.infrastructure_topic", "KAFKA_INFRASTRUCTURE_TOPIC")

	viper.BindEnv("listeners.mqtt.enabled", "LISTENERS_MQTT_ENABLED")
	viper.BindEnv("listeners.test.enabled", "LISTENERS_TEST_ENABLED")
	viper.BindEnv("listeners.test.message_period", "LISTENERS_TEST_MESSAGE_PERIOD")
	viper.BindEnv("listeners.kafka.enabled", "LISTENERS_KAFKA_ENABLED")
	viper.BindEnv("listeners.kafka.topic", "LISTENERS_KAFKA_TOPIC")

	viper.BindEnv("emission.filter", "EMISSION_FILTER")
	viper.BindEnv("emission.log", "EMISSION_LOG")
	viper.BindEnv("emission.kafka", "EMISSION_KAFKA")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
