package vesting

import (
	"github.com/ondrix/vesting-actors/actors/abi"
)

// Schedule is fixed when the record is created.
type Schedule struct {
	CliffPeriod    abi.Duration
	VestingPeriod  abi.Duration
	TGEBasisPoints abi.BasisPoints
}

// Recipient is one slot of the fixed recipient table. A slot with zero basis points is unused.
type Recipient struct {
	Wallet        abi.Address
	BasisPoints   abi.BasisPoints
	ClaimedAmount abi.TokenAmount
	LastClaimTime abi.Timestamp
}

// RecipientShare is a recipient as declared at creation.
type RecipientShare struct {
	Wallet      abi.Address
	BasisPoints abi.BasisPoints
}

// State is the vesting record stored at the derived record address.
type State struct {
	IsInitialized bool
	// Only this identity may trigger distribution.
	Creator abi.Address
	Mint    abi.Address
	Vault   abi.Address
	// Zero until funded.
	StartTime abi.Timestamp
	// Zero until funded.
	TotalAmount    abi.TokenAmount
	Schedule       Schedule
	Recipients     [MaxRecipients]Recipient
	RecipientCount uint8
	// Set once funded. Blocks any further configuration change.
	IsFinalized bool
	// Zero until the first distribution.
	LastDistributionTime abi.Timestamp
}

// ConstructState builds the initial, unfunded record.
func ConstructState(creator, mint, vault abi.Address, schedule Schedule, shares []RecipientShare) *State {
	st := &State{
		IsInitialized:  true,
		Creator:        creator,
		Mint:           mint,
		Vault:          vault,
		Schedule:       schedule,
		RecipientCount: uint8(len(shares)),
	}
	for i, s := range shares {
		st.Recipients[i] = Recipient{
			Wallet:      s.Wallet,
			BasisPoints: s.BasisPoints,
		}
	}
	return st
}

func (st *State) IsFunded() bool {
	return st.StartTime != 0
}

// Fund starts the vesting clock. It may be applied only once.
func (st *State) Fund(now abi.Timestamp, amount abi.TokenAmount) {
	st.StartTime = now
	st.TotalAmount = amount
	st.IsFinalized = true
}

// ActiveRecipients returns the declared slots.
func (st *State) ActiveRecipients() []Recipient {
	return st.Recipients[:st.RecipientCount]
}

// RecipientTotal is the recipient's share of the funded amount, rounded down.
func (st *State) RecipientTotal(slot int) abi.TokenAmount {
	return MulDivFloor(st.TotalAmount, uint64(st.Recipients[slot].BasisPoints), uint64(abi.BasisPointsTotal))
}

// Vested is the amount the recipient in `slot` has earned at `now`.
func (st *State) Vested(slot int, now abi.Timestamp) abi.TokenAmount {
	return VestedAmount(st.RecipientTotal(slot), now, st.StartTime, st.Schedule)
}

// Claimable is the vested amount not yet paid to the recipient in `slot`.
func (st *State) Claimable(slot int, now abi.Timestamp) abi.TokenAmount {
	r := st.Recipients[slot]
	if r.BasisPoints == 0 {
		return 0
	}
	vested := st.Vested(slot, now)
	if vested <= r.ClaimedAmount {
		return 0
	}
	return vested - r.ClaimedAmount
}

// TotalClaimed sums the amounts already paid out.
func (st *State) TotalClaimed() abi.TokenAmount {
	var sum abi.TokenAmount
	for _, r := range st.ActiveRecipients() {
		sum += r.ClaimedAmount
	}
	return sum
}

// CooldownRemaining is how long the caller must wait before the next distribution.
func (st *State) CooldownRemaining(now abi.Timestamp) abi.Duration {
	if st.LastDistributionTime == 0 {
		return 0
	}
	elapsed := now.Sub(st.LastDistributionTime)
	if elapsed >= DistributionCooldown {
		return 0
	}
	return DistributionCooldown - elapsed
}

// RecordClaim books a payout to `slot`. It reports false if the claimed total would overflow.
func (st *State) RecordClaim(slot int, amount abi.TokenAmount, now abi.Timestamp) bool {
	r := &st.Recipients[slot]
	if r.ClaimedAmount+amount < r.ClaimedAmount {
		return false
	}
	r.ClaimedAmount += amount
	r.LastClaimTime = now
	return true
}
