package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"mokosmart/internal/constants"
	"mokosmart/internal/decoder"
	"mokosmart/internal/logger"
)

const testListenerName = "test"

// SimulatedMessage is a scanned bluetooth data message as published by a
// MOKOSmart gateway with a single Eddystone report.
var SimulatedMessage = []byte(`{
	"msg_id": 3004,
	"device_info": {"device_id": "1234", "mac": "112233445566"},
	"data": [{
		"type": 8,
		"value": {
			"timestamp": "2021-01-01&17:10:16+08",
			"type": "unknown",
			"mac": "ABDF01FC9E98",
			"rssi": -78,
			"name": "ABC",
			"raw": "0201060303AAFE1116AAFE20000BD091181501E329"
		}
	}]
}`)

// TestListener emits SimulatedMessage on a fixed period with origin "test".
type TestListener struct {
	period time.Duration
	opts   decoder.Options
	logger logger.Logger
	now    func() time.Time
}

func NewTestListener(period time.Duration, opts decoder.Options, log logger.Logger) *TestListener {
	if period <= 0 {
		period = constants.DefaultTestMessagePeriod
	}
	return &TestListener{
		period: period,
		opts:   opts,
		logger: log,
		now:    time.Now,
	}
}

func (l *TestListener) Name() string {
	return testListenerName
}

func (l *TestListener) schedule() string {
	return fmt.Sprintf("@every %s", l.period)
}

func (l *TestListener) Run(ctx context.Context, h Handler) error {
	c := cron.New()
	if _, err := c.AddFunc(l.schedule(), func() { l.Emit(ctx, h) }); err != nil {
		return fmt.Errorf("schedule test messages: %w", err)
	}

	l.logger.Infow("Emitting simulated gateway messages", "period", l.period)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Emit delivers one simulated message.
func (l *TestListener) Emit(ctx context.Context, h Handler) {
	dispatch(ctx, l.logger, h, SimulatedMessage, constants.OriginTest, l.now(), l.opts)
}
