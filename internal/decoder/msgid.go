package decoder

// MessageType is a MOKOSmart MQTT protocol message identifier (msg_id).
type MessageType int

const (
	NetworkStatus        MessageType = 3003
	ScannedBluetoothData MessageType = 3004
)

func (t MessageType) String() string {
	switch t {
	case NetworkStatus:
		return "network_status"
	case ScannedBluetoothData:
		return "scanned_bluetooth_data"
	default:
		return "unsupported"
	}
}

// ParseMessageType maps a raw msg_id onto a supported MessageType.
func ParseMessageType(id int) (MessageType, bool) {
	switch MessageType(id) {
	case NetworkStatus, ScannedBluetoothData:
		return MessageType(id), true
	default:
		return 0, false
	}
}
