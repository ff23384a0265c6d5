package agent

import (
	"bytes"
	"crypto/ed25519"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	"github.com/ondrix/vesting-actors/support/vm"
)

type vestingPhase int

const (
	phaseUncreated vestingPhase = iota
	phaseCreated
	phaseFunded
	phaseDone
)

func (p vestingPhase) String() string {
	switch p {
	case phaseUncreated:
		return "uncreated"
	case phaseCreated:
		return "created"
	case phaseFunded:
		return "funded"
	default:
		return "done"
	}
}

type VestingAgentConfig struct {
	CreatorKey     ed25519.PrivateKey
	FunderKey      ed25519.PrivateKey
	Source         abi.Address // funder's token account
	Mint           abi.Address
	Shares         []vesting.RecipientShare
	CliffPeriod    abi.Duration
	VestingPeriod  abi.Duration
	TGEBasisPoints abi.BasisPoints
	FundAmount     abi.TokenAmount
	Nonce          uint64
	DistributeRate float64
}

// VestingAgent drives one vesting record from creation until every recipient has claimed their share.
type VestingAgent struct {
	Config  VestingAgentConfig
	Creator abi.Address
	Funder  abi.Address
	Record  abi.Address

	phase        vestingPhase
	distributeEv *RateIterator
	rnd          *rand.Rand

	// Sum of the payouts observed in successful distribution returns.
	Distributed abi.TokenAmount
	Payouts     int
}

func NewVestingAgent(config VestingAgentConfig, rndSeed int64) *VestingAgent {
	rnd := rand.New(rand.NewSource(rndSeed))
	return &VestingAgent{
		Config:       config,
		Creator:      publicAddress(config.CreatorKey),
		Funder:       publicAddress(config.FunderKey),
		distributeEv: NewRateIterator(config.DistributeRate, rnd.Int63()),
		rnd:          rnd,
	}
}

func (va *VestingAgent) Done() bool {
	return va.phase == phaseDone
}

func (va *VestingAgent) Phase() string {
	return va.phase.String()
}

func (va *VestingAgent) Tick(v VMState) ([]Message, error) {
	switch va.phase {
	case phaseUncreated:
		msg, err := va.createMessage()
		if err != nil {
			return nil, err
		}
		return []Message{msg}, nil
	case phaseCreated:
		msg, err := va.fundMessage()
		if err != nil {
			return nil, err
		}
		return []Message{msg}, nil
	case phaseFunded:
		var msgs []Message
		err := va.distributeEv.Tick(func() error {
			msg, err := va.distributeMessage(v)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
			return nil
		})
		return msgs, err
	default:
		return nil, nil
	}
}

func (va *VestingAgent) createMessage() (Message, error) {
	ins, addrs, err := vm.CreateVestingInstruction(va.Creator, va.Config.Mint, &vesting.CreateParams{
		Recipients:     va.Config.Shares,
		CliffPeriod:    va.Config.CliffPeriod,
		VestingPeriod:  va.Config.VestingPeriod,
		TGEBasisPoints: va.Config.TGEBasisPoints,
		Nonce:          va.Config.Nonce,
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "failed to build create instruction")
	}
	return Message{
		Instruction: ins,
		Signers:     []ed25519.PrivateKey{va.Config.CreatorKey},
		ReturnHandler: func(_ VMState, _ Message, ret *vm.MessageResult) error {
			if !ret.Ok() {
				return errors.Errorf("create of %v failed: %s", addrs.Record, ret.Error)
			}
			va.Record = addrs.Record
			va.phase = phaseCreated
			return nil
		},
	}, nil
}

func (va *VestingAgent) fundMessage() (Message, error) {
	ins, err := vm.FundVestingInstruction(va.Funder, va.Config.Source, va.Record, va.Config.FundAmount)
	if err != nil {
		return Message{}, errors.Wrap(err, "failed to build fund instruction")
	}
	return Message{
		Instruction: ins,
		Signers:     []ed25519.PrivateKey{va.Config.FunderKey},
		ReturnHandler: func(_ VMState, _ Message, ret *vm.MessageResult) error {
			if !ret.Ok() {
				return errors.Errorf("fund of %v failed: %s", va.Record, ret.Error)
			}
			va.phase = phaseFunded
			return nil
		},
	}, nil
}

func (va *VestingAgent) distributeMessage(v VMState) (Message, error) {
	st, err := v.GetVesting(va.Record)
	if err != nil {
		return Message{}, err
	}
	ins, err := vm.DistributeVestingInstruction(va.Creator, va.Record, st)
	if err != nil {
		return Message{}, errors.Wrap(err, "failed to build distribute instruction")
	}
	return Message{
		Instruction:   ins,
		Signers:       []ed25519.PrivateKey{va.Config.CreatorKey},
		ReturnHandler: va.onDistributed,
	}, nil
}

func (va *VestingAgent) onDistributed(v VMState, _ Message, ret *vm.MessageResult) error {
	if ret.Ok() {
		var out vesting.DistributeReturn
		if err := out.UnmarshalCBOR(bytes.NewReader(ret.Return)); err != nil {
			return errors.Wrap(err, "failed to decode distribute return")
		}
		va.Distributed += out.Total
		va.Payouts += len(out.Payouts)
	}

	st, err := v.GetVesting(va.Record)
	if err != nil {
		return err
	}
	for i, r := range st.ActiveRecipients() {
		if r.ClaimedAmount < st.RecipientTotal(i) {
			return nil
		}
	}
	va.phase = phaseDone
	return nil
}

// EvenShares splits the basis points evenly, giving the remainder to the last wallet.
func EvenShares(wallets []abi.Address) []vesting.RecipientShare {
	out := make([]vesting.RecipientShare, len(wallets))
	each := abi.BasisPointsTotal / abi.BasisPoints(len(wallets))
	for i, w := range wallets {
		out[i] = vesting.RecipientShare{Wallet: w, BasisPoints: each}
	}
	out[len(out)-1].BasisPoints += abi.BasisPointsTotal - each*abi.BasisPoints(len(wallets))
	return out
}

func publicAddress(key ed25519.PrivateKey) abi.Address {
	var addr abi.Address
	copy(addr[:], key.Public().(ed25519.PublicKey))
	return addr
}
