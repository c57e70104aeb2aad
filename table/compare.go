package table

import (
	"math"
	"strings"
	"time"
)

// Compare orders two non-nil values.
//
// Returns -1, 0 or +1 and true when the pair is comparable. Numbers compare
// numerically across int64/float64, and a number against a numeric string is
// compared numerically. Two int64 values compare exactly; every other numeric
// pair compares as float64 with no tolerance. Timestamps compare
// chronologically, coercing a parseable date string. Strings compare
// lexically, bools false < true. Every other pairing, and any nil operand, is not comparable.
func Compare(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			return compareInts(ai, bi), true
		}
	}
	if af, ok := ToFloat(a); ok {
		if bf, ok := numericOperand(b); ok {
			return compareFloats(af, bf), true
		}
		return 0, false
	}
	if bf, ok := ToFloat(b); ok {
		if af, ok := numericOperand(a); ok {
			return compareFloats(af, bf), true
		}
		return 0, false
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := ToTime(b).(time.Time); ok {
			return compareTimes(at, bt), true
		}
		return 0, false
	}
	if bt, ok := b.(time.Time); ok {
		if at, ok := ToTime(a).(time.Time); ok {
			return compareTimes(at, bt), true
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

// Equal reports whether two values are equal under Compare's coercions.
// nil is never equal to anything, including nil. Numeric pairs involving a
// float are equal within a relative tolerance of floatTolerance; two int64
// values must match exactly.
func Equal(a, b interface{}) bool {
	cmp, ok := Compare(a, b)
	if !ok {
		return false
	}
	return cmp == 0 || floatsClose(a, b)
}

// floatTolerance is the relative difference Equal accepts between floats.
const floatTolerance = 1e-12

// floatsClose applies floatTolerance when at least one operand is a float64.
func floatsClose(a, b interface{}) bool {
	_, aFloat := a.(float64)
	_, bFloat := b.(float64)
	if !aFloat && !bFloat {
		return false
	}
	af, ok := numericOperand(a)
	if !ok {
		return false
	}
	bf, ok := numericOperand(b)
	if !ok {
		return false
	}
	return math.Abs(af-bf) <= floatTolerance*math.Max(1.0, math.Max(math.Abs(af), math.Abs(bf)))
}

// numericOperand accepts numbers and numeric strings.
func numericOperand(v interface{}) (float64, bool) {
	if f, ok := ToFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, ok := parseFloat(strings.TrimSpace(s)); ok {
			return f.(float64), true
		}
	}
	return 0, false
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
