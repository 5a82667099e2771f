// Package reward computes the reward owed for a stake over a span of time.
// Everything here is pure: identical inputs always give identical outputs.
package reward

import (
	"errors"
	"math"

	sdkmath "cosmossdk.io/math"
)

var ErrOverflow = errors.New("reward amount exceeds uint64 range")

var maxAmount = sdkmath.NewUint(math.MaxUint64)

// Accrue returns elapsed * rate, saturating at math.MaxUint64.
// A negative elapsed (clock reporting a time before the checkpoint) accrues nothing.
func Accrue(elapsed int64, rate uint64) uint64 {
	if elapsed <= 0 || rate == 0 {
		return 0
	}

	// both operands fit in 64 bits, so the 256 bit product cannot panic
	product := sdkmath.NewUint(uint64(elapsed)).Mul(sdkmath.NewUint(rate))
	if product.GT(maxAmount) {
		return math.MaxUint64
	}
	return product.Uint64()
}

// Elapsed returns now - since clamped to zero
func Elapsed(since, now int64) int64 {
	if now <= since {
		return 0
	}
	return now - since
}

// CheckedAdd adds two amounts and reports ErrOverflow instead of wrapping
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := sdkmath.NewUint(a).Add(sdkmath.NewUint(b))
	if sum.GT(maxAmount) {
		return 0, ErrOverflow
	}
	return sum.Uint64(), nil
}

// SaturatingAdd adds two amounts, capping the result at math.MaxUint64
func SaturatingAdd(a, b uint64) uint64 {
	sum, err := CheckedAdd(a, b)
	if err != nil {
		return math.MaxUint64
	}
	return sum
}
