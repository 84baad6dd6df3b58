package types

import (
	"fmt"
	"math"
)

// Amount is a fixed-point currency value in micro-units (6 decimals).
// All escrow arithmetic is integer arithmetic; remainders are swept into the
// platform distribution line rather than lost to rounding.
type Amount int64

const MicrosPerUnit = 1_000_000

// Basis points denominator for all rate math.
const BPSDenominator = 10_000

func AmountFromUnits(units float64) Amount {
	return Amount(math.Round(units * MicrosPerUnit))
}

func (a Amount) Units() float64 {
	return float64(a) / MicrosPerUnit
}

func (a Amount) IsZero() bool     { return a == 0 }
func (a Amount) IsPositive() bool { return a > 0 }

// MulBPS applies a basis-point rate, truncating toward zero.
func (a Amount) MulBPS(bps int64) Amount {
	return Amount(int64(a) * bps / BPSDenominator)
}

// Split divides the amount into n equal shares, returning the share and the
// remainder left over after n shares are paid out.
func (a Amount) Split(n int) (share Amount, remainder Amount) {
	if n <= 0 {
		return 0, a
	}
	share = a / Amount(n)
	remainder = a - share*Amount(n)
	return share, remainder
}

func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/MicrosPerUnit, v%MicrosPerUnit)
}
