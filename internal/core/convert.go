package core

// convert.go turns loosely typed cell values into the text the reader and
// writer work with. Export requests arrive as JSON objects whose values may be
// strings, numbers, booleans or null.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FormatCell converts an arbitrary decoded value to its CSV text form.
// nil becomes the empty string.
func FormatCell(v any) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatRecord converts a decoded JSON object to a map of cell text.
// Keys whose value is null are dropped and treated as absent by the writer.
func FormatRecord(rec map[string]any) map[string]string {
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		if v == nil {
			continue
		}
		out[k] = FormatCell(v)
	}
	return out
}
