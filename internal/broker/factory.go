package broker

import (
	"github.com/sony/gobreaker"

	"mokosmart/internal/config"
	"mokosmart/internal/logger"
	"mokosmart/pkg/circuitbreaker"
)

const producerBreakerName = "kafka-producer"

// NewProducer builds the Kafka producer used for emission, guarded by a
// circuit breaker when circuit_breaker.enabled is set.
func NewProducer(cfg *config.Config, log logger.Logger) Producer {
	p := NewKafkaProducer(cfg.Kafka, log)
	if cfg.CircuitBreaker.Enabled {
		cbCfg := circuitbreaker.FromConfig(producerBreakerName, cfg.CircuitBreaker)
		cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warnw("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		}
		p.WithCircuitBreaker(circuitbreaker.NewWrapper(cbCfg))
	}
	return p
}

func NewConsumer(cfg *config.Config, log logger.Logger) Consumer {
	return NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Listeners.Kafka.GroupID, cfg.Kafka.Retry, log)
}
