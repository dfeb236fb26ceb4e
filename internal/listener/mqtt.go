package listener

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mokosmart/internal/config"
	"mokosmart/internal/decoder"
	"mokosmart/internal/logger"
	"mokosmart/pkg/metrics"
	"mokosmart/pkg/retry"
)

const (
	mqttListenerName      = "mqtt"
	mqttPingTimeout       = 10 * time.Second
	mqttMaxReconnectDelay = 30 * time.Second
	mqttDisconnectQuiesce = 250 // ms
)

// MQTTListener subscribes to the gateway topic on an MQTT broker. The broker
// URL is reported as the origin of every message.
type MQTTListener struct {
	cfg    config.MQTTConfig
	opts   decoder.Options
	logger logger.Logger
	client mqtt.Client

	ctx     context.Context
	handler Handler
	now     func() time.Time
}

func NewMQTTListener(cfg config.MQTTConfig, opts decoder.Options, log logger.Logger) *MQTTListener {
	l := &MQTTListener{
		cfg:    cfg,
		opts:   opts,
		logger: log,
		now:    time.Now,
	}
	l.client = mqtt.NewClient(l.clientOptions())
	return l
}

func (l *MQTTListener) Name() string {
	return mqttListenerName
}

// Client exposes the underlying connection for health checks.
func (l *MQTTListener) Client() mqtt.Client {
	return l.client
}

func (l *MQTTListener) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(l.cfg.URL).
		SetClientID(l.cfg.ClientID).
		SetOrderMatters(false).
		SetCleanSession(true).
		SetKeepAlive(l.cfg.KeepAlive).
		SetPingTimeout(mqttPingTimeout).
		SetConnectTimeout(l.cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(mqttMaxReconnectDelay)

	if l.cfg.Username != "" {
		opts.SetUsername(l.cfg.Username)
	}
	if l.cfg.Password != "" {
		opts.SetPassword(l.cfg.Password)
	}

	opts.OnConnect = l.onConnect
	opts.OnConnectionLost = l.onConnectionLost
	return opts
}

// Run connects, retrying until the broker is reachable, then delivers
// messages until ctx is done. Reconnection after a lost connection is left
// to the client.
func (l *MQTTListener) Run(ctx context.Context, h Handler) error {
	l.ctx = ctx
	l.handler = h

	l.logger.Infow("Connecting to MQTT broker", "url", l.cfg.URL, "topic", l.cfg.Topic)

	err := retry.RetryWithCallback(ctx, retry.ReconnectPolicy(mqttMaxReconnectDelay), l.connect,
		func(attempt int, err error, nextDelay time.Duration) {
			l.logger.Warnw("MQTT connect failed, retrying",
				"url", l.cfg.URL,
				"attempt", attempt,
				"next_delay", nextDelay,
				"error", err,
			)
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect to mqtt broker %s: %w", l.cfg.URL, err)
	}

	<-ctx.Done()

	l.client.Disconnect(mqttDisconnectQuiesce)
	metrics.SetListenerConnected(mqttListenerName, false)
	l.logger.Infow("Disconnected from MQTT broker", "url", l.cfg.URL)
	return nil
}

func (l *MQTTListener) connect() error {
	token := l.client.Connect()
	if l.cfg.ConnectTimeout > 0 {
		if !token.WaitTimeout(l.cfg.ConnectTimeout) {
			return retry.NewRetryableError(fmt.Errorf("connect timed out after %s", l.cfg.ConnectTimeout))
		}
	} else {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return retry.NewRetryableError(err)
	}
	return nil
}

func (l *MQTTListener) onConnect(c mqtt.Client) {
	metrics.SetListenerConnected(mqttListenerName, true)

	token := c.Subscribe(l.cfg.Topic, l.cfg.QoS, l.onMessage)
	if token.Wait() && token.Error() != nil {
		l.logger.Errorw("MQTT subscribe failed", "topic", l.cfg.Topic, "error", token.Error())
		return
	}
	l.logger.Infow("Subscribed to MQTT topic", "url", l.cfg.URL, "topic", l.cfg.Topic, "qos", l.cfg.QoS)
}

func (l *MQTTListener) onConnectionLost(_ mqtt.Client, err error) {
	metrics.SetListenerConnected(mqttListenerName, false)
	metrics.MQTTConnectionLostTotal.Inc()
	l.logger.Warnw("MQTT connection lost", "url", l.cfg.URL, "error", err)
}

func (l *MQTTListener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if l.handler == nil {
		return
	}

	dispatch(ctx, l.logger, l.handler, msg.Payload(), l.cfg.URL, l.now(), l.opts)
}
