package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	"github.com/ondrix/vesting-actors/support/agent"
)

func TestVestingSimulation(t *testing.T) {
	ctx := context.Background()
	sim := agent.NewSim(ctx, t, agent.SimConfig{
		VestingCount:         4,
		RecipientsPerVesting: 3,
		FundAmount:           1_000_001,
		CliffPeriod:          5 * abi.Minute,
		VestingPeriod:        30 * abi.Minute,
		TGEBasisPoints:       500,
		TickDuration:         45 * abi.Second,
		DistributeRate:       1.5,
		Seed:                 42,
	})

	ticks := 0
	for ; ticks < 500 && !sim.Done(); ticks++ {
		require.NoError(t, sim.Tick())
	}
	require.True(t, sim.Done(), "simulation did not converge after %d ticks", ticks)

	v := sim.GetVM()
	for _, a := range sim.Agents {
		va := a.(*agent.VestingAgent)
		st, err := v.GetVesting(va.Record)
		require.NoError(t, err)

		summary, msgs := vesting.CheckStateInvariants(st, v.Now())
		assert.True(t, msgs.IsEmpty(), "%v", msgs.Messages())
		assert.Equal(t, abi.TokenAmount(1_000_001), summary.TotalAmount)
		assert.Equal(t, summary.TotalClaimed, va.Distributed)

		for i, r := range st.ActiveRecipients() {
			ata, _, err := token.AssociatedAddress(r.Wallet, st.Mint)
			require.NoError(t, err)
			bal, err := v.TokenBalance(ata)
			require.NoError(t, err)
			assert.Equal(t, st.RecipientTotal(i), bal)
			assert.Equal(t, r.ClaimedAmount, bal)
		}

		vault, err := v.TokenBalance(st.Vault)
		require.NoError(t, err)
		assert.Equal(t, summary.TotalAmount-summary.TotalClaimed, vault)
		// 3333/3333/3334 of 1_000_001 rounds down by one unit in total.
		assert.Equal(t, abi.TokenAmount(1), vault)
	}

	stats := sim.GetCallStats()
	for _, k := range sim.MethodKeys() {
		s := stats[k]
		assert.NotZero(t, s.Calls, "%s", k.Method)
		for code := range s.ExitCodes {
			assert.True(t, code.IsSuccess() || code == vesting.ErrDistributionCooldown ||
				code == vesting.ErrNoClaimableAmount, "%s: unexpected exit code %d", k.Method, code)
		}
	}
	create := stats[agent.MethodKey{Program: vesting.ProgramID, Method: "Create"}]
	require.NotNil(t, create)
	assert.Equal(t, uint64(4), create.Calls)
	fund := stats[agent.MethodKey{Program: vesting.ProgramID, Method: "Fund"}]
	require.NotNil(t, fund)
	assert.Equal(t, uint64(4), fund.Calls)
}

func TestSimulationWithoutDistributionNeverFinishes(t *testing.T) {
	sim := agent.NewSim(context.Background(), t, agent.SimConfig{
		VestingCount:         2,
		RecipientsPerVesting: 2,
		FundAmount:           10_000,
		CliffPeriod:          0,
		VestingPeriod:        10 * abi.Minute,
		TickDuration:         abi.Minute,
		DistributeRate:       0,
		Seed:                 7,
	})
	for i := 0; i < 20; i++ {
		require.NoError(t, sim.Tick())
	}
	assert.False(t, sim.Done())
	for _, a := range sim.Agents {
		assert.Equal(t, "funded", a.(*agent.VestingAgent).Phase())
	}
}

func TestRateIterator(t *testing.T) {
	t.Run("average matches rate", func(t *testing.T) {
		ri := agent.NewRateIterator(2.0, 99)
		total := 0
		for i := 0; i < 10_000; i++ {
			total += ri.Count()
		}
		assert.InDelta(t, 20_000, total, 1_000)
	})

	t.Run("zero rate never fires", func(t *testing.T) {
		ri := agent.NewRateIterator(0, 1)
		for i := 0; i < 100; i++ {
			assert.Zero(t, ri.Count())
		}
	})

	t.Run("rate can change", func(t *testing.T) {
		ri := agent.NewRateIterator(0, 1)
		fired := 0
		for i := 0; i < 100; i++ {
			require.NoError(t, ri.TickWithRate(5, func() error {
				fired++
				return nil
			}))
		}
		assert.Greater(t, fired, 0)
	})
}

func TestEvenShares(t *testing.T) {
	wallets := []abi.Address{{1}, {2}, {3}}
	shares := agent.EvenShares(wallets)
	require.Len(t, shares, 3)
	assert.Equal(t, abi.BasisPoints(3333), shares[0].BasisPoints)
	assert.Equal(t, abi.BasisPoints(3333), shares[1].BasisPoints)
	assert.Equal(t, abi.BasisPoints(3334), shares[2].BasisPoints)
}
