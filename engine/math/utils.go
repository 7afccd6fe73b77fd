package math

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Abs(f float32) float32 {
	return math32.Abs(f)
}

// NearlyEqual reports whether a and b differ by at most epsilon.
func NearlyEqual(a, b, epsilon float32) bool {
	return math32.Abs(a-b) <= epsilon
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}
