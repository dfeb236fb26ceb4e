package decoder

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order after '&' has been replaced by 'T'.
// Gateways send e.g. "2021-01-01&17:10:16+08".
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp interprets a gateway timestamp as Unix milliseconds. Strings
// without a zone offset are taken as UTC. The second return value is false
// when no layout matches; callers keep the report and leave the time unset.
func ParseTimestamp(s string) (int64, bool) {
	normalized := strings.TrimSpace(s)
	normalized = strings.Replace(normalized, "&", "T", 1)
	normalized = strings.Replace(normalized, " ", "T", 1)

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
