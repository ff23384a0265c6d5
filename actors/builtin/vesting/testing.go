package vesting

import (
	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
)

type StateSummary struct {
	RecipientCount int
	TotalAmount    abi.TokenAmount
	TotalClaimed   abi.TokenAmount
	Funded         bool
}

// Checks internal invariants of a vesting record.
func CheckStateInvariants(st *State, now abi.Timestamp) (*StateSummary, *builtin.MessageAccumulator) {
	acc := &builtin.MessageAccumulator{}

	decoded, err := UnpackState(st.Bytes())
	acc.RequireNoError(err, "record does not decode")
	if err == nil {
		acc.Require(*decoded == *st, "record does not survive its encoding")
	}

	acc.Require(st.IsInitialized, "record is not initialized")
	acc.Require(st.RecipientCount >= 1 && st.RecipientCount <= MaxRecipients,
		"recipient count %d not in [1, %d]", st.RecipientCount, MaxRecipients)

	// funding flags move together
	acc.Require(st.IsFunded() == st.IsFinalized, "funded %t but finalized %t", st.IsFunded(), st.IsFinalized)
	acc.Require(st.IsFunded() || st.TotalAmount == 0, "unfunded record has total amount %d", st.TotalAmount)
	acc.Require(st.IsFunded() || st.LastDistributionTime == 0, "unfunded record was distributed at %v", st.LastDistributionTime)
	if st.LastDistributionTime != 0 {
		acc.Require(st.LastDistributionTime >= st.StartTime, "last distribution %v precedes start %v",
			st.LastDistributionTime, st.StartTime)
		acc.Require(st.LastDistributionTime <= now, "last distribution %v is in the future of %v", st.LastDistributionTime, now)
	}

	acc.Require(st.Schedule.CliffPeriod >= 0, "negative cliff %d", st.Schedule.CliffPeriod)
	acc.Require(st.Schedule.CliffPeriod < st.Schedule.VestingPeriod, "cliff %d not shorter than vesting %d",
		st.Schedule.CliffPeriod, st.Schedule.VestingPeriod)
	acc.Require(st.Schedule.VestingPeriod <= MaxVestingDuration, "vesting period %d too long", st.Schedule.VestingPeriod)
	acc.Require(st.Schedule.CliffPeriod <= MaxCliffDuration, "cliff period %d too long", st.Schedule.CliffPeriod)
	acc.Require(st.Schedule.TGEBasisPoints <= abi.BasisPointsTotal, "tge basis points %d too high", st.Schedule.TGEBasisPoints)

	wallets := make(map[abi.Address]struct{})
	var bpSum uint32
	var claimed abi.TokenAmount
	for i, r := range st.Recipients {
		slotAcc := acc.WithPrefix("slot %d: ", i)
		if i >= int(st.RecipientCount) {
			slotAcc.Require(r == Recipient{}, "unused slot is not empty")
			continue
		}
		slotAcc.Require(r.BasisPoints > 0, "active slot has zero basis points")
		slotAcc.Require(!r.Wallet.IsZero(), "active slot has no wallet")
		_, dup := wallets[r.Wallet]
		slotAcc.Require(!dup, "duplicate wallet %v", r.Wallet)
		wallets[r.Wallet] = struct{}{}
		bpSum += uint32(r.BasisPoints)

		recipientTotal := st.RecipientTotal(i)
		slotAcc.Require(r.ClaimedAmount <= recipientTotal, "claimed %d exceeds share %d", r.ClaimedAmount, recipientTotal)
		slotAcc.Require(r.ClaimedAmount <= st.Vested(i, now), "claimed %d exceeds vested %d", r.ClaimedAmount, st.Vested(i, now))
		if r.LastClaimTime != 0 {
			slotAcc.Require(r.ClaimedAmount > 0, "claim time %v set without a claim", r.LastClaimTime)
			slotAcc.Require(r.LastClaimTime <= st.LastDistributionTime, "claim time %v after last distribution %v",
				r.LastClaimTime, st.LastDistributionTime)
		}
		claimed += r.ClaimedAmount
	}
	acc.Require(bpSum == uint32(abi.BasisPointsTotal), "basis points sum to %d", bpSum)
	acc.Require(claimed <= st.TotalAmount, "claimed %d exceeds total %d", claimed, st.TotalAmount)

	return &StateSummary{
		RecipientCount: int(st.RecipientCount),
		TotalAmount:    st.TotalAmount,
		TotalClaimed:   claimed,
		Funded:         st.IsFunded(),
	}, acc
}
