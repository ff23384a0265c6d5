package test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	tutil "github.com/ondrix/vesting-actors/support/testing"
	"github.com/ondrix/vesting-actors/support/vm"
)

const start = abi.Timestamp(1_700_000_000)

// vestingEnv is a ledger with a mint, a creator, a funder holding tokens, and recipient wallets
// with empty token accounts.
type vestingEnv struct {
	v *vm.VM

	creatorKey ed25519.PrivateKey
	funderKey  ed25519.PrivateKey
	creator    abi.Address
	funder     abi.Address
	mint       abi.Address
	source     abi.Address
	wallets    []abi.Address
	atas       []abi.Address
}

func newVestingEnv(t *testing.T, recipients int, supply abi.TokenAmount) *vestingEnv {
	v := vm.NewVMWithPrograms(context.Background(), t, start)
	keys := vm.CreateAccounts(t, v, 1000, 2, 10*vm.LamportsPerSOL)
	env := &vestingEnv{
		v:          v,
		creatorKey: keys[0],
		funderKey:  keys[1],
		creator:    vm.KeyAddress(t, keys[0]),
		funder:     vm.KeyAddress(t, keys[1]),
		mint:       tutil.NewAddr(t, 2000),
		wallets:    tutil.NewAddrs(t, 3000, recipients),
	}
	require.NoError(t, v.CreateMint(env.mint, 6, env.creator))

	var err error
	env.source, err = v.MintToOwner(env.mint, env.funder, supply)
	require.NoError(t, err)

	for _, w := range env.wallets {
		ata, _, err := token.AssociatedAddress(w, env.mint)
		require.NoError(t, err)
		require.NoError(t, v.CreateTokenAccount(ata, env.mint, w))
		env.atas = append(env.atas, ata)
	}
	return env
}

func (env *vestingEnv) shares(bps ...abi.BasisPoints) []vesting.RecipientShare {
	out := make([]vesting.RecipientShare, len(bps))
	for i, bp := range bps {
		out[i] = vesting.RecipientShare{Wallet: env.wallets[i], BasisPoints: bp}
	}
	return out
}

func (env *vestingEnv) create(t *testing.T, params *vesting.CreateParams) *vesting.Addresses {
	ins, addrs, err := vm.CreateVestingInstruction(env.creator, env.mint, params)
	require.NoError(t, err)
	vm.ApplyOk(t, env.v, ins, env.creatorKey)
	return addrs
}

func (env *vestingEnv) fund(t *testing.T, record abi.Address, amount abi.TokenAmount) {
	ins, err := vm.FundVestingInstruction(env.funder, env.source, record, amount)
	require.NoError(t, err)
	vm.ApplyOk(t, env.v, ins, env.funderKey)
}

func (env *vestingEnv) distributeInstruction(t *testing.T, record abi.Address) vm.Instruction {
	st, err := env.v.GetVesting(record)
	require.NoError(t, err)
	ins, err := vm.DistributeVestingInstruction(env.creator, record, st)
	require.NoError(t, err)
	return ins
}

func (env *vestingEnv) balance(t *testing.T, account abi.Address) abi.TokenAmount {
	amt, err := env.v.TokenBalance(account)
	require.NoError(t, err)
	return amt
}

func (env *vestingEnv) checkInvariants(t *testing.T, record abi.Address) *vesting.StateSummary {
	st, err := env.v.GetVesting(record)
	require.NoError(t, err)
	summary, msgs := vesting.CheckStateInvariants(st, env.v.Now())
	require.True(t, msgs.IsEmpty(), "%v", msgs.Messages())

	vault := env.balance(t, st.Vault)
	require.Equal(t, summary.TotalAmount-summary.TotalClaimed, vault, "vault balance does not cover unclaimed amount")
	return summary
}
