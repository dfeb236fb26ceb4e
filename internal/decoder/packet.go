package decoder

import (
	"fmt"
	"strings"
)

// advIndHeader is the ADV_IND PDU type with TxAdd cleared. Gateways never
// report the header, so every reconstructed packet carries it.
const advIndHeader = "20"

const addressLength = 6

// ReconstructPacket builds an approximate advertisement packet (hex) from the
// reported payload and transmitter address. The length octet is not checked
// against the payload, which may exceed what a real packet could carry.
func ReconstructPacket(payload, address string) string {
	var b strings.Builder
	b.Grow(len(advIndHeader) + 2 + 2*addressLength + len(payload))

	b.WriteString(advIndHeader)
	fmt.Fprintf(&b, "%02x", addressLength+len(payload)/2)
	for i := addressLength - 1; i >= 0; i-- {
		b.WriteString(substring(address, 2*i, 2*i+2))
	}
	b.WriteString(payload)

	return b.String()
}

// substring clamps both bounds to the string so short addresses never panic.
func substring(s string, start, end int) string {
	if start > len(s) {
		start = len(s)
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return s[start:end]
}
