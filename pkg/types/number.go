package types

import "math"

// Int64Of reports the int64 held by a whole float64. Fractions, NaN,
// infinities and values outside the int64 range report false.
func Int64Of(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}
