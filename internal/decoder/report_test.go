package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokosmart/pkg/raddec"
)

func TestDecodeReport_RawFieldPriority(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		wantPackets []string
	}{
		{
			name:        "raw only",
			value:       `"raw": "0201"`,
			wantPackets: []string{"2008989efc01dfab0201"},
		},
		{
			name:        "raw data only",
			value:       `"raw data": "0303"`,
			wantPackets: []string{"2008989efc01dfab0303"},
		},
		{
			name:        "raw data preferred over raw",
			value:       `"raw": "0201", "raw data": "0303"`,
			wantPackets: []string{"2008989efc01dfab0303"},
		},
		{
			name:        "non-string raw data shadows raw",
			value:       `"raw data": 12, "raw": "0201"`,
			wantPackets: nil,
		},
		{
			name:        "empty raw",
			value:       `"raw": ""`,
			wantPackets: []string{"2006989efc01dfab"},
		},
		{
			name:        "no raw fields",
			value:       `"name": "ABC"`,
			wantPackets: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := mustParse(t, `{"type": 8, "value": {"mac": "ABDF01FC9E98", "timestamp": "2024-03-05T12:00:00Z", "rssi": -60, `+tt.value+`}}`)

			r, ok := DecodeReport(report, "112233445566", raddec.TypeEUI48)

			require.True(t, ok)
			assert.Equal(t, tt.wantPackets, r.Packets)
		})
	}
}

func TestDecodeReport_Invalid(t *testing.T) {
	reports := map[string]interface{}{
		"nil":                 nil,
		"string":              "report",
		"missing type":        map[string]interface{}{"value": map[string]interface{}{"mac": "a", "timestamp": "b", "rssi": float64(-1)}},
		"fractional type":     map[string]interface{}{"type": 1.5, "value": map[string]interface{}{"mac": "a", "timestamp": "b", "rssi": float64(-1)}},
		"value not object":    map[string]interface{}{"type": float64(1), "value": "x"},
		"timestamp not str":   map[string]interface{}{"type": float64(1), "value": map[string]interface{}{"mac": "a", "timestamp": float64(1), "rssi": float64(-1)}},
		"rssi string":         map[string]interface{}{"type": float64(1), "value": map[string]interface{}{"mac": "a", "timestamp": "b", "rssi": "-1"}},
		"rssi missing":        map[string]interface{}{"type": float64(1), "value": map[string]interface{}{"mac": "a", "timestamp": "b"}},
		"mac missing":         map[string]interface{}{"type": float64(1), "value": map[string]interface{}{"timestamp": "b", "rssi": float64(-1)}},
		"value missing (nil)": map[string]interface{}{"type": float64(1), "value": nil},
	}

	for name, report := range reports {
		t.Run(name, func(t *testing.T) {
			r, ok := DecodeReport(report, "112233445566", raddec.TypeEUI48)
			assert.False(t, ok)
			assert.Nil(t, r)
		})
	}
}

func TestDecodeReport_UnparseableTimestampKeepsReport(t *testing.T) {
	report := mustParse(t, `{"type": 8, "value": {"mac": "ABDF01FC9E98", "timestamp": "yesterday", "rssi": -60}}`)

	r, ok := DecodeReport(report, "112233445566", raddec.TypeEUI48)

	require.True(t, ok)
	assert.Nil(t, r.Timestamp)
	_, hasTime := r.Time()
	assert.False(t, hasTime)
}

func TestInferAddressType(t *testing.T) {
	tests := []struct {
		address string
		want    raddec.IdentifierType
	}{
		{"c1:02:03:04:05:06", raddec.TypeRND48},
		{"c10203040506", raddec.TypeRND48},
		{"d10203040506", raddec.TypeRND48},
		{"e10203040506", raddec.TypeRND48},
		{"ff0203040506", raddec.TypeRND48},
		{"b10203040506", raddec.TypeEUI48},
		{"a10203040506", raddec.TypeEUI48},
		{"010203040506", raddec.TypeEUI48},
		{"", raddec.TypeEUI48},
		{"zz0203040506", raddec.TypeEUI48},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, InferAddressType(tt.address))
		})
	}
}

func TestDecodeReport_LowercasesAndClassifiesAfterLowercasing(t *testing.T) {
	report := mustParse(t, `{"type": 8, "value": {"mac": "C1D2E3F4A5B6", "timestamp": "2024-03-05T12:00:00Z", "rssi": -60}}`)

	r, ok := DecodeReport(report, "gw", raddec.TypeEUI48)

	require.True(t, ok)
	assert.Equal(t, "c1d2e3f4a5b6", r.TransmitterID)
	assert.Equal(t, raddec.TypeRND48, r.TransmitterIDType)
	require.NotNil(t, r.Timestamp)
	assert.Equal(t, int64(1709640000000), *r.Timestamp)
}
