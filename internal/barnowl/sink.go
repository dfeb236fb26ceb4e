package barnowl

import (
	"context"

	"mokosmart/internal/logger"
	"mokosmart/pkg/raddec"
)

// Sink receives every emitted raddec and infrastructure message.
// Implementations must be safe for concurrent use.
type Sink interface {
	Name() string
	HandleRaddec(ctx context.Context, r *raddec.Raddec) error
	HandleInfrastructureMessage(ctx context.Context, m *raddec.InfrastructureMessage) error
}

// LogSink writes emissions to the service log.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) HandleRaddec(ctx context.Context, r *raddec.Raddec) error {
	kv := []interface{}{
		"transmitter_id", r.TransmitterID,
		"transmitter_id_type", r.TransmitterIDType.String(),
		"receivers", len(r.RSSISignature),
		"packets", len(r.Packets),
	}
	if rssi, ok := r.StrongestRSSI(); ok {
		kv = append(kv, "rssi", rssi)
	}
	if ts, ok := r.Time(); ok {
		kv = append(kv, "timestamp", ts)
	}
	s.logger.DebugwCtx(ctx, "raddec", kv...)
	return nil
}

func (s *LogSink) HandleInfrastructureMessage(ctx context.Context, m *raddec.InfrastructureMessage) error {
	s.logger.DebugwCtx(ctx, "infrastructure message",
		"device_id", m.DeviceID,
		"device_id_type", m.DeviceIDType.String(),
		"is_healthy", m.IsHealthy,
		"timestamp", m.Timestamp,
	)
	return nil
}
