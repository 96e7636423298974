// Package timestamp normalizes the instant representations the CRM backend
// emits: RFC3339 strings, epoch-seconds objects from the document store
// ({"seconds": ...} or {"_seconds": ...}), epoch milliseconds, and null.
//
// Normalize never guesses. A value it cannot read yields ok == false and the
// caller decides between exclusion (window filters) and a fallback (display).
// Digit-only strings are rejected: "20240115" could be a date or an epoch
// and reading it either way risks a silently wrong instant. Strings without
// a zone offset are read in the local zone, like the window cutoffs.
package timestamp

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Normalize converts v into an instant.
func Normalize(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case Value:
		return t.Time()
	case *Value:
		if t == nil {
			return time.Time{}, false
		}
		return t.Time()
	case map[string]any:
		return fromSecondsObject(t)
	case string:
		return parseString(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromMillis(f)
	case float64:
		return fromMillis(t)
	case float32:
		return fromMillis(float64(t))
	case int:
		return fromMillis(float64(t))
	case int64:
		return fromMillis(float64(t))
	default:
		return time.Time{}, false
	}
}

// Resolve is Normalize with a fallback for fields that must always render.
func Resolve(v any, fallback time.Time) time.Time {
	if t, ok := Normalize(v); ok {
		return t
	}
	return fallback
}

func fromSecondsObject(m map[string]any) (time.Time, bool) {
	raw, ok := m["seconds"]
	if !ok {
		raw, ok = m["_seconds"]
	}
	if !ok {
		return time.Time{}, false
	}
	var secs float64
	switch s := raw.(type) {
	case float64:
		secs = s
	case int:
		secs = float64(s)
	case int64:
		secs = float64(s)
	case json.Number:
		f, err := s.Float64()
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	default:
		return time.Time{}, false
	}
	return fromMillis(secs * 1000)
}

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Value is a JSON field holding any of the accepted representations.
// Decoding never fails on a malformed instant; Time reports validity instead.
type Value struct {
	raw json.RawMessage
}

// Of wraps a known instant.
func Of(t time.Time) Value {
	b, _ := json.Marshal(t)
	return Value{raw: b}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if t, ok := v.Time(); ok {
		return json.Marshal(t)
	}
	return []byte("null"), nil
}

// IsZero reports whether no value was present at all.
func (v Value) IsZero() bool {
	return len(v.raw) == 0 || bytes.Equal(v.raw, []byte("null"))
}

// Time decodes the raw value through Normalize.
func (v Value) Time() (time.Time, bool) {
	if v.IsZero() {
		return time.Time{}, false
	}
	dec := json.NewDecoder(bytes.NewReader(v.raw))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return time.Time{}, false
	}
	return Normalize(x)
}

// Ptr returns the instant or nil when invalid; convenient for JSON output.
func (v Value) Ptr() *time.Time {
	t, ok := v.Time()
	if !ok {
		return nil
	}
	return &t
}
