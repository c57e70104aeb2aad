package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind names the scalar type of a column.
type Kind string

const (
	KindNull     Kind = "null"
	KindBool     Kind = "bool"
	KindInteger  Kind = "int64"
	KindFloat    Kind = "float64"
	KindString   Kind = "string"
	KindDatetime Kind = "datetime"
	KindMixed    Kind = "mixed"
)

// dateLayouts are tried in order when parsing timestamps.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

// Normalize converts driver-level values (int32, float32, []byte, ...) into
// the table's scalar set.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, bool, int64, float64, string, time.Time:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return float64(val)
		}
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// KindOf reports the kind of a single value.
func KindOf(v interface{}) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInteger
	case float64:
		return KindFloat
	case string:
		return KindString
	case time.Time:
		return KindDatetime
	default:
		return KindMixed
	}
}

// ColumnKind reports the common kind of a column's non-null values.
// Integers mixed with floats report KindFloat.
func ColumnKind(values []interface{}) Kind {
	kind := KindNull
	for _, v := range values {
		k := KindOf(v)
		switch {
		case k == KindNull:
			continue
		case kind == KindNull:
			kind = k
		case kind == k:
		case (kind == KindInteger && k == KindFloat) || (kind == KindFloat && k == KindInteger):
			kind = KindFloat
		default:
			return KindMixed
		}
	}
	return kind
}

// InferColumn converts raw text cells of one column into typed values.
//
// The column becomes int64 if every non-empty cell parses as an integer,
// otherwise float64, bool, or datetime under the same all-or-nothing rule,
// falling back to string. Empty cells become nil.
func InferColumn(cells []string) []interface{} {
	values := make([]interface{}, len(cells))

	parsers := []func(string) (interface{}, bool){
		parseInteger,
		parseFloat,
		parseBool,
		parseTime,
	}
	for _, parse := range parsers {
		if inferWith(cells, values, parse) {
			return values
		}
	}

	for i, cell := range cells {
		if strings.TrimSpace(cell) == "" {
			values[i] = nil
		} else {
			values[i] = cell
		}
	}
	return values
}

func inferWith(cells []string, values []interface{}, parse func(string) (interface{}, bool)) bool {
	nonEmpty := 0
	for i, cell := range cells {
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			values[i] = nil
			continue
		}
		v, ok := parse(trimmed)
		if !ok {
			return false
		}
		values[i] = v
		nonEmpty++
	}
	return nonEmpty > 0
}

func parseInteger(s string) (interface{}, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

func parseFloat(s string) (interface{}, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func parseBool(s string) (interface{}, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

func parseTime(s string) (interface{}, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return nil, false
}

// ToFloat returns the numeric value of int64/float64 values.
func ToFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether v is an int64 or float64.
func IsNumeric(v interface{}) bool {
	_, ok := ToFloat(v)
	return ok
}

// ToNumber coerces a value to a number, or nil when it cannot.
// Integral strings become int64, other numeric strings float64.
func ToNumber(v interface{}) interface{} {
	switch val := v.(type) {
	case int64, float64:
		return val
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case string:
		s := strings.TrimSpace(val)
		if n, ok := parseInteger(s); ok {
			return n
		}
		if f, ok := parseFloat(s); ok {
			return f
		}
	}
	return nil
}

// ToInteger coerces a value to int64, or nil. Floats are truncated.
func ToInteger(v interface{}) interface{} {
	switch n := ToNumber(v).(type) {
	case int64:
		return n
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
		if math.IsNaN(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return nil
		}
		return int64(n)
	}
	return nil
}

// ToFloat64 coerces a value to float64, or nil.
func ToFloat64(v interface{}) interface{} {
	if f, ok := ToFloat(ToNumber(v)); ok {
		return f
	}
	return nil
}

// ToBool coerces a value to bool, or nil.
func ToBool(v interface{}) interface{} {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case float64:
		return val != 0
	case string:
		s := strings.TrimSpace(val)
		if b, ok := parseBool(s); ok {
			return b
		}
		switch s {
		case "1":
			return true
		case "0":
			return false
		}
	}
	return nil
}

// ToTime coerces a value to time.Time, or nil.
func ToTime(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		if t, ok := parseTime(strings.TrimSpace(val)); ok {
			return t
		}
	}
	return nil
}

// ToString returns the string form of a value. nil stays nil.
func ToString(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	return FormatValue(v)
}

// FormatValue renders a value the way it is shown to users.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
