package listener

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokosmart/internal/constants"
	"mokosmart/internal/decoder"
	"mokosmart/internal/logger"
)

func TestTestListener_Emit(t *testing.T) {
	l := NewTestListener(time.Second, nil, logger.NopLogger())
	fixed := time.UnixMilli(1700000000000)
	l.now = func() time.Time { return fixed }
	h := &recordingHandler{}

	l.Emit(context.Background(), h)

	got := h.all()
	require.Len(t, got, 1)
	assert.Equal(t, constants.OriginTest, got[0].origin)
	assert.Equal(t, fixed, got[0].captureTime)
	assert.Equal(t, json.Number("3004"), got[0].msg["msg_id"])
}

func TestTestListener_SimulatedMessageDecodes(t *testing.T) {
	msg, err := ParseMessage(SimulatedMessage)
	require.NoError(t, err)

	result := decoder.Decode(msg, constants.OriginTest, time.Now(), nil)

	require.NoError(t, result.Rejection)
	require.Len(t, result.Raddecs, 1)
	assert.Equal(t, "abdf01fc9e98", result.Raddecs[0].TransmitterID)
	assert.Equal(t, []string{"201b989efc01dfab0201060303AAFE1116AAFE20000BD091181501E329"}, result.Raddecs[0].Packets)
}

func TestTestListener_Schedule(t *testing.T) {
	assert.Equal(t, "@every 10s", NewTestListener(0, nil, logger.NopLogger()).schedule())
	assert.Equal(t, "@every 2m0s", NewTestListener(2*time.Minute, nil, logger.NopLogger()).schedule())
	assert.Equal(t, "test", NewTestListener(0, nil, logger.NopLogger()).Name())
}

func TestTestListener_RunEmitsPeriodically(t *testing.T) {
	l := NewTestListener(time.Second, nil, logger.NopLogger())
	h := &recordingHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, h) }()

	require.Eventually(t, func() bool { return len(h.all()) >= 1 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
