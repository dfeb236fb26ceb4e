package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateLogging(cfg.Logging); err != nil {
		errors = append(errors, err)
	}

	if cfg.Listeners.MQTT.Enabled {
		if err := validateMQTT(cfg.MQTT); err != nil {
			errors = append(errors, err)
		}
	}

	if err := validateListeners(cfg.Listeners); err != nil {
		errors = append(errors, err)
	}

	if cfg.Emission.Kafka || cfg.Listeners.Kafka.Enabled {
		if err := validateKafka(cfg.Kafka); err != nil {
			errors = append(errors, err)
		}
	}

	if err := validateCircuitBreaker(cfg.CircuitBreaker); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateLogging(cfg LoggingConfig) error {
	validFormats := map[string]bool{"json": true, "console": true, "logfmt": true}
	if cfg.Format != "" && !validFormats[strings.ToLower(cfg.Format)] {
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: json, console, logfmt)", cfg.Format),
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Level != "" && !validLevels[strings.ToLower(cfg.Level)] {
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", cfg.Level),
		}
	}

	return nil
}

func validateMQTT(cfg MQTTConfig) error {
	if cfg.URL == "" {
		return &ValidationError{
			Field:   "mqtt.url",
			Message: "MQTT broker URL is required",
		}
	}

	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:   "mqtt.url",
			Message: fmt.Sprintf("invalid MQTT broker URL: %s", cfg.URL),
		}
	}

	validSchemes := map[string]bool{
		"tcp": true, "mqtt": true, "ssl": true, "tls": true, "mqtts": true, "ws": true, "wss": true,
	}
	if !validSchemes[strings.ToLower(u.Scheme)] {
		return &ValidationError{
			Field:   "mqtt.url",
			Message: fmt.Sprintf("unsupported MQTT scheme: %s (valid: tcp, mqtt, ssl, tls, mqtts, ws, wss)", u.Scheme),
		}
	}

	if cfg.Topic == "" {
		return &ValidationError{
			Field:   "mqtt.topic",
			Message: "MQTT topic is required",
		}
	}

	if cfg.QoS > 2 {
		return &ValidationError{
			Field:   "mqtt.qos",
			Message: fmt.Sprintf("qos must be 0, 1 or 2, got %d", cfg.QoS),
		}
	}

	return nil
}

func validateListeners(cfg ListenersConfig) error {
	if !cfg.MQTT.Enabled && !cfg.Test.Enabled && !cfg.Kafka.Enabled {
		return &ValidationError{
			Field:   "listeners",
			Message: "at least one listener must be enabled",
		}
	}

	if cfg.Test.Enabled && cfg.Test.MessagePeriod <= 0 {
		return &ValidationError{
			Field:   "listeners.test.message_period",
			Message: "message period must be positive",
		}
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.Topic == "" {
			return &ValidationError{
				Field:   "listeners.kafka.topic",
				Message: "Kafka listener topic is required",
			}
		}
		if cfg.Kafka.GroupID == "" {
			return &ValidationError{
				Field:   "listeners.kafka.group_id",
				Message: "Kafka consumer group ID is required",
			}
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.RaddecTopic == "" {
		return &ValidationError{
			Field:   "kafka.raddec_topic",
			Message: "raddec topic is required",
		}
	}

	if cfg.InfrastructureTopic == "" {
		return &ValidationError{
			Field:   "kafka.infrastructure_topic",
			Message: "infrastructure topic is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: fmt.Sprintf("failure ratio must be in (0, 1], got %v", cfg.FailureRatio),
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "circuit_breaker.timeout",
			Message: "timeout must be positive",
		}
	}

	return nil
}
