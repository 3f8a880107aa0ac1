package entity

import "math"

// MaxAmount is the largest amount a total can hold
const MaxAmount int64 = math.MaxInt64

// MulAmount returns a*b for non-negative operands; ok is false on overflow
func MulAmount(a, b int64) (product int64, ok bool) {
	if a <= 0 || b <= 0 {
		return a * b, true
	}
	if b > MaxAmount/a {
		return MaxAmount, false
	}
	return a * b, true
}

// AddAmount returns a+b for non-negative operands, saturating at MaxAmount
func AddAmount(a, b int64) int64 {
	if b > 0 && a > MaxAmount-b {
		return MaxAmount
	}
	return a + b
}
