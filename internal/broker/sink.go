package broker

import (
	"context"

	"mokosmart/pkg/raddec"
)

const SinkName = "kafka"

// KafkaSink publishes raddecs and infrastructure messages to their topics.
// Raddecs are keyed by transmitter signature so one transmitter stays on one
// partition.
type KafkaSink struct {
	producer            Producer
	raddecTopic         string
	infrastructureTopic string
}

func NewKafkaSink(producer Producer, raddecTopic, infrastructureTopic string) *KafkaSink {
	return &KafkaSink{
		producer:            producer,
		raddecTopic:         raddecTopic,
		infrastructureTopic: infrastructureTopic,
	}
}

func (s *KafkaSink) Name() string {
	return SinkName
}

func (s *KafkaSink) HandleRaddec(ctx context.Context, r *raddec.Raddec) error {
	return s.producer.Publish(ctx, s.raddecTopic, r.Signature(), r)
}

func (s *KafkaSink) HandleInfrastructureMessage(ctx context.Context, m *raddec.InfrastructureMessage) error {
	return s.producer.Publish(ctx, s.infrastructureTopic, m.DeviceID, m)
}
