package decoder

import (
	"strconv"
	"strings"

	"mokosmart/pkg/raddec"
)

// Payload fields in the order they are checked.
var rawPayloadFields = []string{"raw data", "raw"}

// randomStaticThreshold is the lowest top nibble of a random static address
// (two most significant bits set).
const randomStaticThreshold = 0xc

// Report is one validated scan observation.
type Report struct {
	Type      int
	MAC       string
	Timestamp string
	RSSI      int
	// Raw is the advertising payload in hex, empty when neither raw field exists.
	Raw    string
	HasRaw bool
}

// ParseReport applies the report invariant. ok is false for anything that
// must be skipped.
func ParseReport(v interface{}) (Report, bool) {
	entry, ok := v.(map[string]interface{})
	if !ok {
		return Report{}, false
	}
	reportType, ok := asInteger(entry["type"])
	if !ok {
		return Report{}, false
	}
	value, ok := entry["value"].(map[string]interface{})
	if !ok {
		return Report{}, false
	}
	mac, ok := value["mac"].(string)
	if !ok {
		return Report{}, false
	}
	timestamp, ok := value["timestamp"].(string)
	if !ok {
		return Report{}, false
	}
	rssi, ok := asInteger(value["rssi"])
	if !ok {
		return Report{}, false
	}

	report := Report{
		Type:      reportType,
		MAC:       mac,
		Timestamp: timestamp,
		RSSI:      rssi,
	}
	for _, field := range rawPayloadFields {
		raw, exists := value[field]
		if !exists {
			continue
		}
		// The first present field wins even when it is not usable.
		if s, ok := raw.(string); ok {
			report.Raw = s
			report.HasRaw = true
		}
		break
	}
	return report, true
}

// DecodeReport converts one scan report into a raddec with a single decoding.
// It returns false when the report does not satisfy the report invariant.
func DecodeReport(v interface{}, receiverID string, receiverIDType raddec.IdentifierType) (*raddec.Raddec, bool) {
	report, ok := ParseReport(v)
	if !ok {
		return nil, false
	}

	// TODO: use the TxAdd bit instead once the gateway protocol reports it.
	transmitterID := strings.ToLower(report.MAC)
	transmitterIDType := InferAddressType(transmitterID)

	var timestamp *int64
	if ms, ok := ParseTimestamp(report.Timestamp); ok {
		timestamp = &ms
	}

	r := raddec.New(transmitterID, transmitterIDType, timestamp)
	r.AddDecoding(receiverID, receiverIDType, report.RSSI)

	if report.HasRaw {
		r.AddPacket(ReconstructPacket(report.Raw, transmitterID))
	}

	return r, true
}

// InferAddressType approximates the address type from the top nibble of a
// hex address.
func InferAddressType(address string) raddec.IdentifierType {
	if address == "" {
		return raddec.TypeEUI48
	}
	nibble, err := strconv.ParseUint(address[:1], 16, 8)
	if err != nil {
		return raddec.TypeEUI48
	}
	if nibble >= randomStaticThreshold {
		return raddec.TypeRND48
	}
	return raddec.TypeEUI48
}
