package decoder

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type Reason string

const (
	ReasonNotObject          Reason = "not_object"
	ReasonUnsupportedMsgID   Reason = "unsupported_msg_id"
	ReasonMissingDeviceInfo  Reason = "missing_device_info"
	ReasonDeviceMACNotString Reason = "device_mac_not_string"
	ReasonDataNotSequence    Reason = "data_not_sequence"
)

// InvalidEnvelopeError explains why an inbound message was not decoded.
type InvalidEnvelopeError struct {
	Reason Reason
	Detail string
}

func (e *InvalidEnvelopeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid envelope: %s", e.Reason)
	}
	return fmt.Sprintf("invalid envelope: %s (%s)", e.Reason, e.Detail)
}

// Envelope is a validated top-level gateway message.
type Envelope struct {
	Type MessageType
	// GatewayMAC is the device_info.mac value exactly as received.
	GatewayMAC string
	Data       interface{}
}

// GatewayID is the gateway address in the form used for receiver and device ids.
func (e Envelope) GatewayID() string {
	return strings.ToLower(e.GatewayMAC)
}

// ValidateEnvelope checks msg_id and device_info.mac. It has no side effects.
func ValidateEnvelope(msg map[string]interface{}) (Envelope, error) {
	if msg == nil {
		return Envelope{}, &InvalidEnvelopeError{Reason: ReasonNotObject}
	}

	id, ok := asInteger(msg["msg_id"])
	if !ok {
		return Envelope{}, &InvalidEnvelopeError{
			Reason: ReasonUnsupportedMsgID,
			Detail: fmt.Sprintf("msg_id %v is not an integer", msg["msg_id"]),
		}
	}
	msgType, ok := ParseMessageType(id)
	if !ok {
		return Envelope{}, &InvalidEnvelopeError{
			Reason: ReasonUnsupportedMsgID,
			Detail: fmt.Sprintf("msg_id %d", id),
		}
	}

	deviceInfo, ok := msg["device_info"].(map[string]interface{})
	if !ok {
		return Envelope{}, &InvalidEnvelopeError{Reason: ReasonMissingDeviceInfo}
	}
	mac, ok := deviceInfo["mac"].(string)
	if !ok {
		return Envelope{}, &InvalidEnvelopeError{Reason: ReasonDeviceMACNotString}
	}

	return Envelope{
		Type:       msgType,
		GatewayMAC: mac,
		Data:       msg["data"],
	}, nil
}

// asInteger accepts any JSON number without a fractional part that fits in
// an int32, whichever way the JSON was parsed.
func asInteger(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return boundedInt(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return asInteger(f)
	case int:
		return boundedInt(int64(n))
	case int64:
		return boundedInt(n)
	case int32:
		return int(n), true
	default:
		return 0, false
	}
}

func boundedInt(i int64) (int, bool) {
	if i > math.MaxInt32 || i < math.MinInt32 {
		return 0, false
	}
	return int(i), true
}
