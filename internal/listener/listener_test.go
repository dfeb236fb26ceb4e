package listener

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mokosmart/internal/decoder"
	"mokosmart/internal/logger"
	"mokosmart/pkg/logging"
)

type delivery struct {
	msg         map[string]interface{}
	origin      string
	captureTime time.Time
	opts        decoder.Options
	messageID   string
}

type recordingHandler struct {
	mu         sync.Mutex
	deliveries []delivery
	panicWith  interface{}
}

func (h *recordingHandler) HandleData(ctx context.Context, msg map[string]interface{}, origin string, captureTime time.Time, opts decoder.Options) {
	h.mu.Lock()
	h.deliveries = append(h.deliveries, delivery{
		msg:         msg,
		origin:      origin,
		captureTime: captureTime,
		opts:        opts,
		messageID:   logging.Value(ctx, logging.MessageIDKey),
	})
	h.mu.Unlock()

	if h.panicWith != nil {
		panic(h.panicWith)
	}
}

func (h *recordingHandler) all() []delivery {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]delivery(nil), h.deliveries...)
}

func observedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.NewWithCore(core), logs
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"msg_id": 3004, "data": []}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("3004"), msg["msg_id"])

	invalid := map[string]string{
		"empty":          ``,
		"not json":       `msg_id=3004`,
		"array":          `[{"msg_id": 3004}]`,
		"string":         `"3004"`,
		"null":           `null`,
		"trailing data":  `{"msg_id": 3004} {}`,
		"truncated":      `{"msg_id": 30`,
		"number literal": `3004`,
	}
	for name, payload := range invalid {
		t.Run(name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(payload))
			assert.Error(t, err)
			assert.Nil(t, msg)
		})
	}
}

func TestDispatch_MalformedPayloadIsDroppedAndLogged(t *testing.T) {
	log, logs := observedLogger()
	h := &recordingHandler{}

	dispatch(context.Background(), log, h, []byte(`not json`), "tcp://broker:1883", time.Now(), nil)

	assert.Empty(t, h.all())
	entries := logs.FilterMessage("Discarding malformed gateway message").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tcp://broker:1883", entries[0].ContextMap()["origin"])
}

func TestDispatch_AssignsMessageIDs(t *testing.T) {
	h := &recordingHandler{}

	dispatch(context.Background(), logger.NopLogger(), h, []byte(`{}`), "test", time.Now(), nil)
	dispatch(context.Background(), logger.NopLogger(), h, []byte(`{}`), "test", time.Now(), nil)

	got := h.all()
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].messageID)
	assert.NotEqual(t, got[0].messageID, got[1].messageID)
}

func TestDispatch_RecoversHandlerPanic(t *testing.T) {
	log, logs := observedLogger()
	h := &recordingHandler{panicWith: "boom"}

	assert.NotPanics(t, func() {
		dispatch(context.Background(), log, h, []byte(`{}`), "test", time.Now(), nil)
	})
	assert.Equal(t, 1, logs.FilterMessage("Panic while handling gateway message").Len())
}
