package docstore

import (
	"encoding/json"
	"math"
	"time"
)

// Fields is the content of a document. After a round trip through a backend
// values have their JSON shapes: numbers are float64, timestamps are maps.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp, used as a field value in Add or Set, is replaced with a
// Timestamp issued by the store at write time.
var ServerTimestamp = serverTimestamp{}

// Timestamp is the store's monotonic instant representation.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// TimestampOf converts t.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time converts ts back to local time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos))
}

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool {
	return ts.Seconds == 0 && ts.Nanos == 0
}

// Before orders timestamps.
func (ts Timestamp) Before(o Timestamp) bool {
	if ts.Seconds != o.Seconds {
		return ts.Seconds < o.Seconds
	}
	return ts.Nanos < o.Nanos
}

// String returns the value at key, or "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool returns the value at key, or false when absent or not a bool.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Int returns the numeric value at key truncated to int.
func (f Fields) Int(key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// Strings returns the string elements of the list at key. Non-string
// elements are skipped.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Timestamp returns the Timestamp at key. The second result is false when the
// value is missing or does not have the seconds/nanos shape.
func (f Fields) Timestamp(key string) (Timestamp, bool) {
	return asTimestamp(f[key])
}

func asTimestamp(v any) (Timestamp, bool) {
	switch t := v.(type) {
	case Timestamp:
		return t, true
	case *Timestamp:
		if t == nil {
			return Timestamp{}, false
		}
		return *t, true
	case map[string]any:
		secs, ok := t["seconds"].(float64)
		if !ok {
			return Timestamp{}, false
		}
		nanos, _ := t["nanos"].(float64)
		return Timestamp{Seconds: int64(secs), Nanos: int32(nanos)}, true
	}
	return Timestamp{}, false
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func encode(f Fields) ([]byte, error) {
	return json.Marshal(f)
}

func decode(id string, data []byte) (Document, error) {
	f := Fields{}
	if err := json.Unmarshal(data, &f); err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: f}, nil
}
