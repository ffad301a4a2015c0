// Package numutil converts caller-supplied counts to the int32 fields the
// store API takes.
package numutil

import "math"

// ClampIntToInt32 converts n to int32, clamping to the int32 range.
func ClampIntToInt32(n int) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	default:
		return int32(n)
	}
}

// PageLimit returns the Limit for a query page of count items. Non-positive
// counts leave the page unbounded.
func PageLimit(count int) *int32 {
	if count <= 0 {
		return nil
	}
	limit := ClampIntToInt32(count)
	return &limit
}
