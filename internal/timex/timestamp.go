package timex

import (
	"fmt"
	"strings"
	"time"
)

// Backends in the wild emit either RFC 3339 or a zone-less local timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s using the accepted layouts. Zone-less values are
// interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatLocal renders t in the layout accepted by the backend for
// user-supplied expiry times.
func FormatLocal(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}
