// Package decoder turns MOKOSmart gateway MQTT messages into raddecs and
// infrastructure messages.
//
// Decoding is a pure function of its inputs: nothing is retained between
// calls, so Decode may be called concurrently from any number of listeners.
// Malformed envelopes and reports never produce errors, they only shorten the
// output.
package decoder

import (
	"time"

	"mokosmart/pkg/raddec"
)

const netStateOnline = "online"

// Options are per-listener decoding options. None are interpreted yet.
type Options map[string]interface{}

// Result holds everything decoded from one message. The remaining fields are
// diagnostics only; Type and GatewayID are zero for rejected messages.
type Result struct {
	Raddecs                []*raddec.Raddec
	InfrastructureMessages []*raddec.InfrastructureMessage

	Type           MessageType
	GatewayID      string
	Rejection      error
	SkippedReports int
}

func emptyResult(rejection error) Result {
	return Result{
		Raddecs:                []*raddec.Raddec{},
		InfrastructureMessages: []*raddec.InfrastructureMessage{},
		Rejection:              rejection,
	}
}

// Decode decodes one parsed gateway message. origin and opts are accepted for
// per-origin normalisation and do not currently change the output.
func Decode(msg map[string]interface{}, origin string, captureTime time.Time, opts Options) Result {
	envelope, err := ValidateEnvelope(msg)
	if err != nil {
		return emptyResult(err)
	}

	var result Result
	switch envelope.Type {
	case NetworkStatus:
		result = decodeNetworkStatus(envelope, captureTime)
	case ScannedBluetoothData:
		result = decodeScannedBluetoothData(envelope)
	default:
		return emptyResult(&InvalidEnvelopeError{Reason: ReasonUnsupportedMsgID})
	}

	result.Type = envelope.Type
	result.GatewayID = envelope.GatewayID()
	return result
}

func decodeNetworkStatus(envelope Envelope, captureTime time.Time) Result {
	result := emptyResult(nil)

	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		return result
	}
	if state, ok := data["net_state"].(string); !ok || state != netStateOnline {
		return result
	}

	result.InfrastructureMessages = append(result.InfrastructureMessages, &raddec.InfrastructureMessage{
		DeviceID:     envelope.GatewayID(),
		DeviceIDType: raddec.TypeEUI48,
		IsHealthy:    true,
		Timestamp:    captureTime.UnixMilli(),
	})
	return result
}

func decodeScannedBluetoothData(envelope Envelope) Result {
	reports, ok := envelope.Data.([]interface{})
	if !ok {
		return emptyResult(&InvalidEnvelopeError{Reason: ReasonDataNotSequence})
	}

	result := emptyResult(nil)
	result.Raddecs = make([]*raddec.Raddec, 0, len(reports))
	receiverID := envelope.GatewayID()

	for _, report := range reports {
		r, ok := DecodeReport(report, receiverID, raddec.TypeEUI48)
		if !ok {
			result.SkippedReports++
			continue
		}
		result.Raddecs = append(result.Raddecs, r)
	}

	return result
}
