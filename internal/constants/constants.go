package constants

import "time"

const (
	ServiceName = "mokosmart-bridge"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultMQTTURL   = "tcp://localhost:1883"
	DefaultMQTTTopic = "mokosmart/#"
)

const (
	DefaultRaddecTopic         = "raddecs"
	DefaultInfrastructureTopic = "infrastructure_messages"
)

const (
	// OriginTest is the origin reported by the synthetic test listener.
	OriginTest               = "test"
	DefaultTestMessagePeriod = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// MaxDecodeBodyBytes bounds request bodies on the dry-run decode endpoint.
	MaxDecodeBodyBytes = 1 << 20
)
