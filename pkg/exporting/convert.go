package exporting

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the wall-clock format used in report logs.
const TimestampLayout = "2006-01-02 15:04:05"

// valueKind is the storage type of a logged value.
type valueKind string

const (
	kindInt    valueKind = "int"
	kindFloat  valueKind = "float"
	kindBool   valueKind = "bool"
	kindString valueKind = "string"
)

func kindOf(v interface{}) valueKind {
	switch v.(type) {
	case bool:
		return kindBool
	case float32, float64:
		return kindFloat
	}
	if _, ok := ToInt64(v); ok {
		return kindInt
	}
	return kindString
}

// ToInt64 converts integer types to int64. Floats and strings are rejected.
func ToInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// ToFloat64 converts a value to float64, returning 0 on failure.
func ToFloat64(v interface{}) float64 {
	f, _ := ToFloat64Ok(v)
	return f
}

// ToFloat64Ok converts numbers and numeric strings to float64.
func ToFloat64Ok(v interface{}) (float64, bool) {
	if i, ok := ToInt64(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ToTime converts a logged timestamp (TimestampLayout, RFC 3339, unix
// seconds or unix nanoseconds) to a time.
func ToTime(v interface{}) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	if s, ok := v.(string); ok {
		for _, parse := range []func(string) (time.Time, error){
			func(s string) (time.Time, error) { return time.ParseInLocation(TimestampLayout, s, time.Local) },
			func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) },
		} {
			if ts, err := parse(s); err == nil {
				return ts, true
			}
		}
	}
	f, ok := ToFloat64Ok(v)
	switch {
	case !ok:
		return time.Time{}, false
	case f > 1e12:
		return time.Unix(0, int64(f)), true
	default:
		return time.Unix(int64(f), 0), true
	}
}

// FormatValue renders a value as log text. nil renders empty.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(TimestampLayout)
	case json.Number:
		return val.String()
	}
	if i, ok := ToInt64(v); ok {
		return strconv.FormatInt(i, 10)
	}
	return fmt.Sprint(v)
}

// parseValue reverses FormatValue for text formats: integers, then floats,
// then booleans, otherwise the string itself.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	return s
}

// decodeValue restores a value stored as text with its kind.
func decodeValue(kind valueKind, s string) interface{} {
	switch kind {
	case kindInt:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case kindFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case kindBool:
		return s == "true"
	}
	return s
}
