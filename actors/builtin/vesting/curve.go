package vesting

import (
	"github.com/filecoin-project/go-state-types/big"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// VestedAmount returns how much of `total` has vested at `now` for a schedule started at `start`.
// A fraction is released at the token generation event, the rest unlocks linearly between the
// cliff and the end of the vesting period. The result never exceeds `total` and never decreases
// as `now` advances.
func VestedAmount(total abi.TokenAmount, now, start abi.Timestamp, schedule Schedule) abi.TokenAmount {
	if now < start {
		return 0
	}
	elapsed := now.Sub(start)

	tgeBasisPoints := schedule.TGEBasisPoints
	if tgeBasisPoints > abi.BasisPointsTotal {
		tgeBasisPoints = abi.BasisPointsTotal
	}
	tge := MulDivFloor(total, uint64(tgeBasisPoints), uint64(abi.BasisPointsTotal))

	if elapsed < schedule.CliffPeriod {
		return tge
	}
	if elapsed >= schedule.VestingPeriod || schedule.VestingPeriod <= schedule.CliffPeriod {
		return total
	}

	linear := MulDivFloor(total-tge, uint64(elapsed-schedule.CliffPeriod), uint64(schedule.VestingPeriod-schedule.CliffPeriod))
	return tge + linear
}

// MulDivFloor computes floor(a * b / c) without overflowing the intermediate product.
// The caller guarantees b <= c, so the result fits in a uint64.
func MulDivFloor(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	product := big.Mul(big.NewIntUnsigned(a), big.NewIntUnsigned(b))
	return big.Div(product, big.NewIntUnsigned(c)).Uint64()
}
