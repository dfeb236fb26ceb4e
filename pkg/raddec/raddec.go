package raddec

import (
	"fmt"
	"time"
)

type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeEUI64
	TypeEUI48
	TypeRND48
	TypeTID96
	TypeEPC96
	TypeUUID16
	TypeUUID32
	TypeUUID128
	TypeEURID32
)

func (t IdentifierType) String() string {
	switch t {
	case TypeEUI64:
		return "EUI64"
	case TypeEUI48:
		return "EUI48"
	case TypeRND48:
		return "RND48"
	case TypeTID96:
		return "TID96"
	case TypeEPC96:
		return "EPC96"
	case TypeUUID16:
		return "UUID16"
	case TypeUUID32:
		return "UUID32"
	case TypeUUID128:
		return "UUID128"
	case TypeEURID32:
		return "EURID32"
	default:
		return "UNKNOWN"
	}
}

// Decoding is one receiver's observation of a transmitter.
type Decoding struct {
	ReceiverID        string         `json:"receiverId"`
	ReceiverIDType    IdentifierType `json:"receiverIdType"`
	RSSI              int            `json:"rssi"`
	NumberOfDecodings int            `json:"numberOfDecodings"`
}

// Raddec is a radio decoding: one transmitter as seen by one or more receivers.
// Timestamp is in Unix milliseconds and is nil when the source time could not
// be interpreted.
type Raddec struct {
	TransmitterID     string         `json:"transmitterId"`
	TransmitterIDType IdentifierType `json:"transmitterIdType"`
	RSSISignature     []Decoding     `json:"rssiSignature"`
	Packets           []string       `json:"packets,omitempty"`
	Timestamp         *int64         `json:"timestamp"`
}

func New(transmitterID string, transmitterIDType IdentifierType, timestamp *int64) *Raddec {
	return &Raddec{
		TransmitterID:     transmitterID,
		TransmitterIDType: transmitterIDType,
		RSSISignature:     make([]Decoding, 0, 1),
		Timestamp:         timestamp,
	}
}

func (r *Raddec) AddDecoding(receiverID string, receiverIDType IdentifierType, rssi int) {
	for i := range r.RSSISignature {
		d := &r.RSSISignature[i]
		if d.ReceiverID == receiverID && d.ReceiverIDType == receiverIDType {
			d.NumberOfDecodings++
			return
		}
	}
	r.RSSISignature = append(r.RSSISignature, Decoding{
		ReceiverID:        receiverID,
		ReceiverIDType:    receiverIDType,
		RSSI:              rssi,
		NumberOfDecodings: 1,
	})
}

// AddPacket appends a hex packet unless an identical one is already present.
func (r *Raddec) AddPacket(packet string) {
	for _, p := range r.Packets {
		if p == packet {
			return
		}
	}
	r.Packets = append(r.Packets, packet)
}

// Signature identifies the transmitter independently of who received it.
func (r *Raddec) Signature() string {
	return fmt.Sprintf("%s/%d", r.TransmitterID, r.TransmitterIDType)
}

func (r *Raddec) Time() (time.Time, bool) {
	if r.Timestamp == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*r.Timestamp), true
}

// StrongestRSSI returns the highest rssi across all decodings.
func (r *Raddec) StrongestRSSI() (int, bool) {
	if len(r.RSSISignature) == 0 {
		return 0, false
	}
	best := r.RSSISignature[0].RSSI
	for _, d := range r.RSSISignature[1:] {
		if d.RSSI > best {
			best = d.RSSI
		}
	}
	return best, true
}

// InfrastructureMessage reports the health of a receiving device.
type InfrastructureMessage struct {
	DeviceID     string         `json:"deviceId"`
	DeviceIDType IdentifierType `json:"deviceIdType"`
	IsHealthy    bool           `json:"isHealthy"`
	Timestamp    int64          `json:"timestamp"`
}
