package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	MQTT           MQTTConfig           `mapstructure:"mqtt"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Listeners      ListenersConfig      `mapstructure:"listeners"`
	Emission       EmissionConfig       `mapstructure:"emission"`
	Decoding       DecodingConfig       `mapstructure:"decoding"`
	API            APIConfig            `mapstructure:"api"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json", "console" or "logfmt"
}

// MQTTConfig describes the broker the gateways publish to.
type MQTTConfig struct {
	URL            string        `mapstructure:"url"`
	Topic          string        `mapstructure:"topic"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	KeepAlive      time.Duration `mapstructure:"keep_alive"`
}

type KafkaConfig struct {
	Brokers             []string    `mapstructure:"brokers"`
	RaddecTopic         string      `mapstructure:"raddec_topic"`
	InfrastructureTopic string      `mapstructure:"infrastructure_topic"`
	Retry               RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type ListenersConfig struct {
	MQTT  MQTTListenerConfig  `mapstructure:"mqtt"`
	Test  TestListenerConfig  `mapstructure:"test"`
	Kafka KafkaListenerConfig `mapstructure:"kafka"`
}

type MQTTListenerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TestListenerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MessagePeriod time.Duration `mapstructure:"message_period"`
}

type KafkaListenerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type EmissionConfig struct {
	// Filter is an optional CEL expression; raddecs evaluating to false are dropped.
	Filter string `mapstructure:"filter"`
	Log    bool   `mapstructure:"log"`
	Kafka  bool   `mapstructure:"kafka"`
}

// DecodingConfig carries opaque options handed to the decoder with every message.
type DecodingConfig struct {
	Options map[string]interface{} `mapstructure:"options"`
}

type APIConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
