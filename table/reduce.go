package table

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Reduction function names.
const (
	FuncSum    = "sum"
	FuncAvg    = "avg"
	FuncCount  = "count"
	FuncMin    = "min"
	FuncMax    = "max"
	FuncMedian = "median"
	FuncStd    = "std"
)

var (
	// ErrUnknownFunction is returned for reduction names outside the supported set
	ErrUnknownFunction = errors.New("unknown aggregate function")

	// ErrNonNumeric is returned when a numeric reduction meets a non-numeric value
	ErrNonNumeric = errors.New("non-numeric value")
)

// CanonicalFunc maps a reduction name (case-insensitive, "mean" accepted as
// an alias of avg) to its canonical form.
func CanonicalFunc(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FuncSum:
		return FuncSum, true
	case FuncAvg, "mean":
		return FuncAvg, true
	case FuncCount:
		return FuncCount, true
	case FuncMin:
		return FuncMin, true
	case FuncMax:
		return FuncMax, true
	case FuncMedian:
		return FuncMedian, true
	case FuncStd:
		return FuncStd, true
	default:
		return "", false
	}
}

// Reduce computes a scalar reduction over values. nil values are ignored.
//
// sum of no values is 0; avg, min, max and median of no values are nil; std
// is the sample standard deviation (n-1 denominator) and is nil below two
// values. sum, avg, median and std fail with ErrNonNumeric when a non-null
// value is not a number.
func Reduce(fn string, values []interface{}) (interface{}, error) {
	canonical, ok := CanonicalFunc(fn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, fn)
	}

	switch canonical {
	case FuncCount:
		count := int64(0)
		for _, v := range values {
			if v != nil {
				count++
			}
		}
		return count, nil
	case FuncMin:
		return extreme(values, -1), nil
	case FuncMax:
		return extreme(values, 1), nil
	}

	nums, allInt, err := numbers(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", canonical, err)
	}

	switch canonical {
	case FuncSum:
		if allInt {
			var sum int64
			for _, v := range values {
				if n, ok := v.(int64); ok {
					sum += n
				}
			}
			return sum, nil
		}
		return sumFloats(nums), nil
	case FuncAvg:
		if len(nums) == 0 {
			return nil, nil
		}
		return sumFloats(nums) / float64(len(nums)), nil
	case FuncMedian:
		if len(nums) == 0 {
			return nil, nil
		}
		return Quantile(nums, 0.5), nil
	default: // FuncStd
		return SampleStd(nums), nil
	}
}

// SampleStd returns the sample standard deviation, or nil for fewer than two
// values.
func SampleStd(nums []float64) interface{} {
	if len(nums) < 2 {
		return nil
	}
	mean := sumFloats(nums) / float64(len(nums))
	var sq float64
	for _, n := range nums {
		d := n - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(nums)-1))
}

// Quantile returns the q-th quantile (0..1) with linear interpolation between
// closest ranks. nums must be non-empty; it is not modified.
func Quantile(nums []float64, q float64) float64 {
	sorted := make([]float64, len(nums))
	copy(sorted, nums)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

// numbers extracts the non-null numeric values.
func numbers(values []interface{}) ([]float64, bool, error) {
	nums := make([]float64, 0, len(values))
	allInt := true
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := ToFloat(v)
		if !ok {
			return nil, false, fmt.Errorf("%w: %T", ErrNonNumeric, v)
		}
		if _, isInt := v.(int64); !isInt {
			allInt = false
		}
		nums = append(nums, f)
	}
	return nums, allInt, nil
}

// extreme returns the minimum (sign -1) or maximum (sign +1) comparable
// value, keeping its original type.
func extreme(values []interface{}, sign int) interface{} {
	var best interface{}
	for _, v := range values {
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		if cmp, ok := Compare(v, best); ok && cmp == sign {
			best = v
		}
	}
	return best
}

func sumFloats(nums []float64) float64 {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum
}
