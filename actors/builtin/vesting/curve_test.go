package vesting_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
)

func TestVestedAmount(t *testing.T) {
	schedule := vesting.Schedule{CliffPeriod: 300, VestingPeriod: 1200, TGEBasisPoints: 1000}
	const total = abi.TokenAmount(1_000_000)
	const start = abi.Timestamp(1_700_000_000)

	t.Run("reference schedule", func(t *testing.T) {
		for _, tc := range []struct {
			elapsed abi.Duration
			vested  abi.TokenAmount
		}{
			{0, 100_000},
			{299, 100_000},
			{300, 100_000},
			{301, 101_000},
			{750, 550_000},
			{1199, 999_000},
			{1200, 1_000_000},
			{5000, 1_000_000},
		} {
			assert.Equal(t, tc.vested, vesting.VestedAmount(total, start.Add(tc.elapsed), start, schedule), "elapsed %d", tc.elapsed)
		}
	})

	t.Run("nothing before start", func(t *testing.T) {
		assert.Equal(t, abi.TokenAmount(0), vesting.VestedAmount(total, start-1, start, schedule))
	})

	t.Run("monotonic and bounded", func(t *testing.T) {
		prev := abi.TokenAmount(0)
		for elapsed := abi.Duration(-10); elapsed < 1500; elapsed += 7 {
			v := vesting.VestedAmount(total, start.Add(elapsed), start, schedule)
			assert.GreaterOrEqual(t, v, prev)
			assert.LessOrEqual(t, v, total)
			prev = v
		}
	})

	t.Run("zero tge and zero cliff", func(t *testing.T) {
		s := vesting.Schedule{CliffPeriod: 0, VestingPeriod: 100}
		assert.Equal(t, abi.TokenAmount(0), vesting.VestedAmount(1000, start, start, s))
		assert.Equal(t, abi.TokenAmount(10), vesting.VestedAmount(1000, start+1, start, s))
		assert.Equal(t, abi.TokenAmount(1000), vesting.VestedAmount(1000, start+100, start, s))
	})

	t.Run("full tge", func(t *testing.T) {
		s := vesting.Schedule{CliffPeriod: 10, VestingPeriod: 100, TGEBasisPoints: 10_000}
		assert.Equal(t, abi.TokenAmount(1000), vesting.VestedAmount(1000, start, start, s))
	})

	t.Run("no overflow on large totals", func(t *testing.T) {
		s := vesting.Schedule{CliffPeriod: abi.Year, VestingPeriod: 4 * abi.Year, TGEBasisPoints: 5000}
		big := abi.TokenAmount(math.MaxUint64)
		tge := vesting.VestedAmount(big, start, start, s)
		assert.Equal(t, abi.TokenAmount(math.MaxUint64/2), tge)

		mid := vesting.VestedAmount(big, start.Add(2*abi.Year), start, s)
		assert.Greater(t, mid, tge)
		assert.Less(t, mid, big)

		assert.Equal(t, big, vesting.VestedAmount(big, start.Add(4*abi.Year), start, s))
	})
}

func TestMulDivFloor(t *testing.T) {
	assert.Equal(t, uint64(0), vesting.MulDivFloor(5, 1, 0))
	assert.Equal(t, uint64(3), vesting.MulDivFloor(10, 1, 3))
	assert.Equal(t, uint64(math.MaxUint64), vesting.MulDivFloor(math.MaxUint64, 10_000, 10_000))
	assert.Equal(t, uint64(math.MaxUint64/3), vesting.MulDivFloor(math.MaxUint64, 1, 3))
}

func TestRecipientShares(t *testing.T) {
	st := vesting.ConstructState(abi.Address{1}, abi.Address{2}, abi.Address{3},
		vesting.Schedule{CliffPeriod: 0, VestingPeriod: 100},
		[]vesting.RecipientShare{
			{Wallet: abi.Address{10}, BasisPoints: 3333},
			{Wallet: abi.Address{11}, BasisPoints: 3333},
			{Wallet: abi.Address{12}, BasisPoints: 3334},
		})
	st.Fund(1000, 100)

	// shares round down, so the remainder of the pool stays in the vault
	assert.Equal(t, abi.TokenAmount(33), st.RecipientTotal(0))
	assert.Equal(t, abi.TokenAmount(33), st.RecipientTotal(1))
	assert.Equal(t, abi.TokenAmount(33), st.RecipientTotal(2))

	assert.Equal(t, abi.TokenAmount(33), st.Claimable(0, 1100))
	assert.True(t, st.RecordClaim(0, 20, 1050))
	assert.Equal(t, abi.TokenAmount(13), st.Claimable(0, 1100))
	assert.Equal(t, abi.TokenAmount(0), st.Claimable(5, 1100), "unused slot")
}
