package cel

// FilterExpressionExamples are emission filters shown in the sample config.
var FilterExpressionExamples = map[string]string{
	"strong_signal":      `rssi > -80`,
	"public_address":     `transmitterIdType == 2`,
	"random_address":     `transmitterIdType == 3`,
	"single_gateway":     `receiverId == "112233445566"`,
	"with_packets":       `size(packets) > 0`,
	"eddystone":          `packets.exists(p, p.contains("aafe") || p.contains("AAFE"))`,
	"vendor_prefix":      `transmitterId.startsWith("ac233f")`,
	"timed_only":         `hasTimestamp`,
	"recent":             `hasTimestamp && timestamp > timestamp("2021-01-01T00:00:00Z")`,
	"combined_condition": `(transmitterIdType == 2 || rssi > -60) && size(packets) > 0`,
}
