package vm_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	tutil "github.com/ondrix/vesting-actors/support/testing"
	"github.com/ondrix/vesting-actors/support/vm"
)

const start = abi.Timestamp(1_700_000_000)

func TestTransactionEncoding(t *testing.T) {
	key := tutil.NewKey(t, 1)
	ins := vm.Instruction{
		Program:  vesting.ProgramID,
		Accounts: []vm.AccountMeta{vm.Signer(vm.KeyAddress(t, key)), vm.Writable(tutil.NewAddr(t, 2)), vm.Readonly(builtin.TokenProgramID)},
		Data:     []byte{0x02},
	}
	tx, err := vm.NewTransaction(ins, key)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		b, err := tx.Bytes()
		require.NoError(t, err)
		back, err := vm.DecodeTransaction(b)
		require.NoError(t, err)
		assert.Equal(t, tx, back)

		id1, err := tx.ID()
		require.NoError(t, err)
		id2, err := back.ID()
		require.NoError(t, err)
		assert.Equal(t, id1, id2)

		var parsed vm.TxID
		require.NoError(t, parsed.UnmarshalText([]byte(id1.String())))
		assert.Equal(t, id1, parsed)
	})

	t.Run("trailing bytes rejected", func(t *testing.T) {
		b, err := tx.Bytes()
		require.NoError(t, err)
		_, err = vm.DecodeTransaction(append(b, 0))
		assert.Error(t, err)
		_, err = vm.DecodeTransaction(b[:len(b)-1])
		assert.Error(t, err)
	})
}

func TestApplyTransactionChecksSignatures(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithPrograms(ctx, t, start)
	keys := vm.CreateAccounts(t, v, 10, 2, vm.LamportsPerSOL)
	alice, bob := vm.KeyAddress(t, keys[0]), vm.KeyAddress(t, keys[1])

	ins := vm.Instruction{
		Program:  vesting.ProgramID,
		Accounts: []vm.AccountMeta{vm.Signer(alice)},
		Data:     []byte{0x02},
	}

	t.Run("missing signature", func(t *testing.T) {
		tx, err := vm.NewTransaction(ins, keys[1])
		require.NoError(t, err)
		result := v.ApplyTransaction(tx)
		assert.Equal(t, exitcode.SysErrSenderInvalid, result.ExitCode)
	})

	t.Run("tampered instruction", func(t *testing.T) {
		tx, err := vm.NewTransaction(ins, keys[0])
		require.NoError(t, err)
		tx.Instruction.Accounts = append(tx.Instruction.Accounts, vm.Writable(bob))
		result := v.ApplyTransaction(tx)
		assert.Equal(t, exitcode.SysErrSenderInvalid, result.ExitCode)
	})

	t.Run("unknown program", func(t *testing.T) {
		bad := ins
		bad.Program = bob
		result := vm.ApplyCode(t, v, exitcode.SysErrInvalidReceiver, bad, keys[0])
		assert.NotEmpty(t, result.Error)
	})

	t.Run("program abort surfaces exit code", func(t *testing.T) {
		// too few accounts for Distribute
		vm.ApplyCode(t, v, vesting.ErrInvalidAccountCount, ins, keys[0])
	})
}

func TestAbortRollsBack(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithPrograms(ctx, t, start)
	keys := vm.CreateAccounts(t, v, 10, 1, vm.LamportsPerSOL)
	creator := vm.KeyAddress(t, keys[0])
	mint := tutil.NewAddr(t, 50)
	require.NoError(t, v.CreateMint(mint, 6, creator))

	params := &vesting.CreateParams{
		Recipients:    []vesting.RecipientShare{{Wallet: tutil.NewAddr(t, 60), BasisPoints: 10000}},
		CliffPeriod:   0,
		VestingPeriod: 100,
		Nonce:         1,
	}
	ins, addrs, err := vm.CreateVestingInstruction(creator, mint, params)
	require.NoError(t, err)

	// A read-only vault is rejected before anything is allocated.
	ins.Accounts[2].IsWritable = false
	rootBefore := v.StateRoot()
	vm.ApplyCode(t, v, vesting.ErrAccountNotWritable, ins, keys[0])
	assert.Equal(t, rootBefore, v.StateRoot())

	// An allocation failure inside the program rolls back the payer debit too.
	poor := vm.CreateAccounts(t, v, 20, 1, builtin.MinimumBalance(vesting.RecordSize))[0]
	ins, addrs, err = vm.CreateVestingInstruction(vm.KeyAddress(t, poor), mint, params)
	require.NoError(t, err)
	rootBefore = v.StateRoot()
	vm.ApplyCode(t, v, exitcode.ErrInsufficientFunds, ins, poor)
	assert.Equal(t, rootBefore, v.StateRoot())
	_, found := v.GetAccount(addrs.Record)
	assert.False(t, found)
	payer, found := v.GetAccount(vm.KeyAddress(t, poor))
	require.True(t, found)
	assert.Equal(t, builtin.MinimumBalance(vesting.RecordSize), payer.Lamports)

	inv := v.LastInvocation()
	vm.ExpectInvocation{
		Program:  vesting.ProgramID,
		Method:   "0",
		Exitcode: exitcode.ErrInsufficientFunds,
		SubInvocations: []vm.ExpectInvocation{
			{Program: builtin.SystemProgramID, Method: "CreateAccount", Exitcode: exitcode.Ok},
			{Program: builtin.SystemProgramID, Method: "CreateAccount", Exitcode: exitcode.ErrInsufficientFunds},
		},
	}.Matches(t, inv)
}

type recordingObserver struct {
	results []*vm.MessageResult
	changed []int
}

func (o *recordingObserver) Committed(_ context.Context, result *vm.MessageResult, changed map[abi.Address]*vm.Account) error {
	o.results = append(o.results, result)
	o.changed = append(o.changed, len(changed))
	return nil
}

func TestSnapshotAndObservers(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithPrograms(ctx, t, start)
	obs := &recordingObserver{}
	v.AddObserver(obs)

	keys := vm.CreateAccounts(t, v, 10, 1, vm.LamportsPerSOL)
	creator := vm.KeyAddress(t, keys[0])
	mint := tutil.NewAddr(t, 50)
	require.NoError(t, v.CreateMint(mint, 6, creator))

	params := &vesting.CreateParams{
		Recipients:    []vesting.RecipientShare{{Wallet: tutil.NewAddr(t, 60), BasisPoints: 10000}},
		VestingPeriod: 100,
		Nonce:         1,
	}
	ins, addrs, err := vm.CreateVestingInstruction(creator, mint, params)
	require.NoError(t, err)
	result := vm.ApplyOk(t, v, ins, keys[0])
	assert.True(t, result.Ok())
	assert.Equal(t, v.StateRoot(), result.StateRoot)
	assert.NotEmpty(t, result.Logs)

	require.Len(t, obs.results, 1)
	// creator, record and vault
	assert.Equal(t, 3, obs.changed[0])

	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, v.SaveSnapshot(path))

	restored := vm.NewVM(ctx, vm.VestingPrograms())
	require.NoError(t, restored.LoadSnapshot(path))
	assert.Equal(t, v.StateRoot(), restored.StateRoot())
	assert.Equal(t, start, restored.Now())

	st, err := restored.GetVesting(addrs.Record)
	require.NoError(t, err)
	assert.Equal(t, creator, st.Creator)
}
