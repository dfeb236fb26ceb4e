package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokosmart/internal/config"
	"mokosmart/internal/logger"
	"mokosmart/pkg/circuitbreaker"
	apperrors "mokosmart/pkg/errors"
	"mokosmart/pkg/raddec"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	err      error
	messages []kafka.Message
	calls    int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func fastRetry() config.RetryConfig {
	return config.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
}

func TestKafkaSink_PublishesRaddecKeyedBySignature(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(newKafkaProducer(w, fastRetry(), logger.NopLogger()), "raddecs", "infra")

	ts := int64(1609492216000)
	r := raddec.New("abdf01fc9e98", raddec.TypeEUI48, &ts)
	r.AddDecoding("112233445566", raddec.TypeEUI48, -78)

	require.NoError(t, sink.HandleRaddec(context.Background(), r))
	require.NoError(t, sink.HandleInfrastructureMessage(context.Background(), &raddec.InfrastructureMessage{
		DeviceID: "112233445566", DeviceIDType: raddec.TypeEUI48, IsHealthy: true, Timestamp: ts,
	}))

	require.Len(t, w.messages, 2)
	assert.Equal(t, "raddecs", w.messages[0].Topic)
	assert.Equal(t, "abdf01fc9e98/2", string(w.messages[0].Key))
	assert.Equal(t, "infra", w.messages[1].Topic)
	assert.Equal(t, "112233445566", string(w.messages[1].Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, "abdf01fc9e98", decoded["transmitterId"])
	assert.Equal(t, "content-type", w.messages[0].Headers[0].Key)
	assert.Equal(t, SinkName, sink.Name())
}

func TestKafkaProducer_RetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2, err: errors.New("leader not available")}
	p := newKafkaProducer(w, fastRetry(), logger.NopLogger())

	require.NoError(t, p.Publish(context.Background(), "raddecs", "k", map[string]string{"a": "b"}))
	assert.Equal(t, 3, w.calls)
	assert.Len(t, w.messages, 1)
}

func TestKafkaProducer_GivesUp(t *testing.T) {
	w := &fakeWriter{failures: 10, err: errors.New("leader not available")}
	p := newKafkaProducer(w, fastRetry(), logger.NopLogger())

	err := p.Publish(context.Background(), "raddecs", "k", "v")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.Equal(t, 3, w.calls)
}

func TestKafkaProducer_MarshalErrorIsNotRetried(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, fastRetry(), logger.NopLogger())

	err := p.Publish(context.Background(), "raddecs", "k", make(chan int))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, w.calls)
}

func TestKafkaProducer_OpenBreakerFailsFast(t *testing.T) {
	w := &fakeWriter{failures: 100, err: errors.New("connection refused")}
	cb := circuitbreaker.NewWrapper(circuitbreaker.FromConfig("producer-test", config.CircuitBreakerConfig{
		Enabled: true, MinRequests: 1, FailureRatio: 0.5, Timeout: time.Minute,
	}))
	p := newKafkaProducer(w, fastRetry(), logger.NopLogger()).WithCircuitBreaker(cb)

	err := p.Publish(context.Background(), "raddecs", "k", "v")
	require.Error(t, err)
	assert.True(t, cb.IsOpen())
	assert.Equal(t, 1, w.calls)
}

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	done      chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	close(r.done)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaConsumer_CommitsEveryMessage(t *testing.T) {
	reader := &fakeReader{
		messages: []kafka.Message{
			{Topic: "gateways", Offset: 1, Value: []byte(`{"ok":true}`)},
			{Topic: "gateways", Offset: 2, Value: []byte(`panic`)},
			{Topic: "gateways", Offset: 3, Value: []byte(`fatal`)},
		},
		done: make(chan struct{}),
	}
	c := NewKafkaConsumer([]string{"localhost:9092"}, "group", fastRetry(), logger.NopLogger())
	c.newReader = func(string) messageReader { return reader }

	var handled []int64
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Consume(ctx, "gateways", func(ctx context.Context, m kafka.Message) error {
			handled = append(handled, m.Offset)
			switch string(m.Value) {
			case "panic":
				panic("handler bug")
			case "fatal":
				return apperrors.ErrValidation
			}
			return nil
		})
	}()

	<-reader.done
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	assert.Len(t, reader.committed, 3)
	assert.Equal(t, []int64{1, 2, 3}, handled, "fatal errors and panics are not retried")
	assert.NoError(t, c.Close())
}
