package agent

import (
	"context"
	"crypto/ed25519"
	"math/rand"
	"sort"
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	tutil "github.com/ondrix/vesting-actors/support/testing"
	"github.com/ondrix/vesting-actors/support/vm"
)

var log = logging.Logger("agent")

// Exit codes an agent may hit by racing the clock. They are counted but do not fail the tick.
var tolerated = map[exitcode.ExitCode]bool{
	vesting.ErrDistributionCooldown: true,
	vesting.ErrNoClaimableAmount:    true,
}

type Sim struct {
	Config        SimConfig
	Agents        []Agent
	v             *vm.VM
	rnd           *rand.Rand
	statsByMethod map[MethodKey]*CallStats
}

type VMState interface {
	Now() abi.Timestamp
	GetVesting(addr abi.Address) (*vesting.State, error)
	TokenBalance(addr abi.Address) (abi.TokenAmount, error)
}

type SimConfig struct {
	VestingCount         int
	RecipientsPerVesting int
	FundAmount           abi.TokenAmount
	CliffPeriod          abi.Duration
	VestingPeriod        abi.Duration
	TGEBasisPoints       abi.BasisPoints
	// Ledger time that passes between two ticks.
	TickDuration abi.Duration
	// Expected number of distribution attempts per vesting per tick.
	DistributeRate float64
	Seed           int64
}

type Agent interface {
	Tick(v VMState) ([]Message, error)
	Done() bool
}

type ReturnHandler func(v VMState, msg Message, result *vm.MessageResult) error

type Message struct {
	Instruction   vm.Instruction
	Signers       []ed25519.PrivateKey
	ReturnHandler ReturnHandler
}

type MethodKey struct {
	Program abi.Address
	Method  string
}

type CallStats struct {
	Calls     uint64
	ExitCodes map[exitcode.ExitCode]uint64
}

var genesisTime = abi.Timestamp(1_700_000_000)

// NewSim builds a ledger with one mint shared by VestingCount vesting agents, each with its own creator,
// funder and recipients.
func NewSim(ctx context.Context, t testing.TB, config SimConfig) *Sim {
	v := vm.NewVMWithPrograms(ctx, t, genesisTime)
	rnd := rand.New(rand.NewSource(config.Seed))

	mint := tutil.NewAddr(t, 1)
	require.NoError(t, v.CreateMint(mint, 6, tutil.NewAddr(t, 2)))

	sim := &Sim{
		Config:        config,
		v:             v,
		rnd:           rnd,
		statsByMethod: make(map[MethodKey]*CallStats),
	}
	for i := 0; i < config.VestingCount; i++ {
		seed := uint64(1000 * (i + 1))
		keys := vm.CreateAccounts(t, v, seed, 2, 10*vm.LamportsPerSOL)
		funder := vm.KeyAddress(t, keys[1])
		source, err := v.MintToOwner(mint, funder, config.FundAmount)
		require.NoError(t, err)

		wallets := tutil.NewAddrs(t, seed+100, config.RecipientsPerVesting)
		for _, w := range wallets {
			ata, _, err := token.AssociatedAddress(w, mint)
			require.NoError(t, err)
			require.NoError(t, v.CreateTokenAccount(ata, mint, w))
		}

		sim.Agents = append(sim.Agents, NewVestingAgent(VestingAgentConfig{
			CreatorKey:     keys[0],
			FunderKey:      keys[1],
			Source:         source,
			Mint:           mint,
			Shares:         EvenShares(wallets),
			CliffPeriod:    config.CliffPeriod,
			VestingPeriod:  config.VestingPeriod,
			TGEBasisPoints: config.TGEBasisPoints,
			FundAmount:     config.FundAmount,
			Nonce:          rnd.Uint64(),
			DistributeRate: config.DistributeRate,
		}, rnd.Int63()))
	}
	return sim
}

// Tick advances the ledger clock, collects messages from every agent and applies them.
// Messages are submitted concurrently; return handlers then run in submission order.
func (s *Sim) Tick() error {
	s.v.Advance(s.Config.TickDuration)

	var blockMessages []Message
	for _, a := range s.Agents {
		msgs, err := a.Tick(s.v)
		if err != nil {
			return err
		}
		blockMessages = append(blockMessages, msgs...)
	}

	// shuffle messages
	s.rnd.Shuffle(len(blockMessages), func(i, j int) {
		blockMessages[i], blockMessages[j] = blockMessages[j], blockMessages[i]
	})

	results := make([]*vm.MessageResult, len(blockMessages))
	var g errgroup.Group
	for i, msg := range blockMessages {
		i, msg := i, msg
		g.Go(func() error {
			tx, err := vm.NewTransaction(msg.Instruction, msg.Signers...)
			if err != nil {
				return errors.Wrap(err, "failed to sign message")
			}
			results[i] = s.v.ApplyTransaction(tx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, msg := range blockMessages {
		ret := results[i]
		s.record(msg, ret)
		if !ret.Ok() && !tolerated[ret.ExitCode] {
			return errors.Errorf("exitcode %d: message failed: %s", ret.ExitCode, ret.Error)
		}
		if !ret.Ok() {
			log.Debugw("message rejected", "program", ret.Program, "exitCode", ret.ExitCode,
				"error", vesting.ErrorName(ret.ExitCode))
		}
		if msg.ReturnHandler != nil {
			if err := msg.ReturnHandler(s.v, msg, ret); err != nil {
				return err
			}
		}
	}
	return nil
}

// Done reports whether every agent has finished its lifecycle.
func (s *Sim) Done() bool {
	for _, a := range s.Agents {
		if !a.Done() {
			return false
		}
	}
	return true
}

func (s *Sim) GetVM() *vm.VM {
	return s.v
}

func (s *Sim) GetCallStats() map[MethodKey]*CallStats {
	return s.statsByMethod
}

// MethodKeys lists the recorded methods in a stable order.
func (s *Sim) MethodKeys() []MethodKey {
	keys := make([]MethodKey, 0, len(s.statsByMethod))
	for k := range s.statsByMethod {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Program != keys[j].Program {
			return keys[i].Program.Less(keys[j].Program)
		}
		return keys[i].Method < keys[j].Method
	})
	return keys
}

func (s *Sim) record(msg Message, ret *vm.MessageResult) {
	key := MethodKey{Program: msg.Instruction.Program, Method: methodName(msg.Instruction)}
	stats, ok := s.statsByMethod[key]
	if !ok {
		stats = &CallStats{ExitCodes: make(map[exitcode.ExitCode]uint64)}
		s.statsByMethod[key] = stats
	}
	stats.Calls++
	stats.ExitCodes[ret.ExitCode]++
}

func methodName(ins vm.Instruction) string {
	if len(ins.Data) == 0 {
		return "empty"
	}
	return vesting.Opcode(ins.Data[0]).String()
}
