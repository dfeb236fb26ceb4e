// Package listener receives gateway messages from their transports and hands
// them, parsed, to a Handler.
package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"mokosmart/internal/decoder"
	"mokosmart/internal/logger"
	apperrors "mokosmart/pkg/errors"
	"mokosmart/pkg/logging"
	"mokosmart/pkg/metrics"
)

const msgTypeUnknown = "unknown"

// Handler receives every parsed gateway message.
type Handler interface {
	HandleData(ctx context.Context, msg map[string]interface{}, origin string, captureTime time.Time, opts decoder.Options)
}

// Listener is a source of gateway messages. Run blocks until ctx is done or
// the listener fails permanently.
type Listener interface {
	Name() string
	Run(ctx context.Context, h Handler) error
}

// ParseMessage decodes a JSON payload into a generic object. Numbers are kept
// as json.Number so integer checks stay exact.
func ParseMessage(payload []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parse message: trailing data after JSON value")
	}

	msg, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("parse message: expected a JSON object, got %T", v)
	}
	return msg, nil
}

// dispatch parses payload and forwards it. Malformed payloads and handler
// panics are logged and counted; they never stop the listener.
func dispatch(ctx context.Context, log logger.Logger, h Handler, payload []byte, origin string, captureTime time.Time, opts decoder.Options) {
	ctx = logging.WithMessageID(ctx, uuid.NewString())
	ctx = logging.WithOrigin(ctx, origin)

	msg, err := ParseMessage(payload)
	if err != nil {
		metrics.IncGatewayMessage(origin, msgTypeUnknown, metrics.StatusMalformed)
		log.WarnwCtx(ctx, "Discarding malformed gateway message",
			"error", err,
			"payload_bytes", len(payload),
		)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			panicErr := apperrors.RecoverPanic(r)
			log.ErrorwCtx(ctx, "Panic while handling gateway message", "error", panicErr)
		}
	}()

	h.HandleData(ctx, msg, origin, captureTime, opts)
}
