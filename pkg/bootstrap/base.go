package bootstrap

import (
	"context"
	"fmt"

	"mokosmart/internal/broker"
	"mokosmart/internal/config"
	"mokosmart/internal/logger"
)

// Base holds the Kafka clients shared by the bridge's emission and replay
// paths. Either may be nil when its feature is disabled.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	Consumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker creates the producer when Kafka emission is enabled and the
// consumer when the Kafka listener is enabled.
func (b *Base) InitBroker(serviceName string) error {
	if b.Config.Emission.Kafka {
		b.Producer = broker.NewProducer(b.Config, b.Logger)
		b.Logger.Infow("Kafka emission enabled",
			"brokers", b.Config.Kafka.Brokers,
			"raddec_topic", b.Config.Kafka.RaddecTopic,
			"infrastructure_topic", b.Config.Kafka.InfrastructureTopic,
		)
	}

	if b.Config.Listeners.Kafka.Enabled {
		if len(b.Config.Kafka.Brokers) == 0 {
			b.ShutdownBroker()
			return fmt.Errorf("failed to create consumer: no kafka brokers configured")
		}
		consumer := broker.NewConsumer(b.Config, b.Logger)
		if serviceName != "" {
			consumer.SetServiceName(serviceName)
		}
		b.Consumer = consumer
	}

	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownBroker()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
