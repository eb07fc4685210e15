package timeline

import (
	"regexp"
	"strconv"
	"strings"
)

// durationPattern matches the upstream duration string encoding, with or
// without the trailing unit ("12.5s", "12.5", "3s").
var durationPattern = regexp.MustCompile(`^\d+(\.\d+)?s?$`)

// TimeOffset is the typed form of the upstream {seconds, nanos} pair.
type TimeOffset struct {
	Seconds int64 `json:"seconds,omitempty"`
	Nanos   int64 `json:"nanos,omitempty"`
}

// NormalizeTimeOffset converts any upstream time representation into canonical
// float seconds. The contract is deliberately permissive: annotation formats
// vary by detector and one malformed timestamp must not fail an analysis, so
// unrecognized shapes resolve to 0 rather than an error.
func NormalizeTimeOffset(v interface{}) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		return parseDurationString(t)
	case TimeOffset:
		return float64(t.Seconds) + float64(t.Nanos)/1e9
	case *TimeOffset:
		if t == nil {
			return 0
		}
		return float64(t.Seconds) + float64(t.Nanos)/1e9
	case map[string]interface{}:
		return numberField(t, "seconds") + numberField(t, "nanos")/1e9
	default:
		return 0
	}
}

func parseDurationString(s string) float64 {
	s = strings.TrimSpace(s)
	if !durationPattern.MatchString(s) {
		return 0
	}
	s = strings.TrimSuffix(s, "s")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// numberField pulls a numeric field out of a loosely decoded JSON object.
// encoding/json yields float64 for all numbers, but protobuf-derived payloads
// sometimes carry int64 seconds or string-encoded values.
func numberField(m map[string]interface{}, key string) float64 {
	raw, ok := m[key]
	if !ok {
		return 0
	}
	switch n := raw.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
