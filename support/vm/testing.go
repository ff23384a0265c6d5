package vm

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	tutil "github.com/ondrix/vesting-actors/support/testing"
)

// One SOL worth of lamports.
const LamportsPerSOL = 1_000_000_000

// Creates a new VM running the vesting program, with its clock at now.
func NewVMWithPrograms(ctx context.Context, t testing.TB, now abi.Timestamp) *VM {
	vm := NewVM(ctx, VestingPrograms())
	vm.SetNow(now)
	return vm
}

// Creates n funded wallets, returning their keys. Seeds are offset so repeated calls yield distinct keys.
func CreateAccounts(t testing.TB, vm *VM, seed uint64, n int, lamports uint64) []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, n)
	for i := range keys {
		keys[i] = tutil.NewKey(t, seed+uint64(i))
		err := vm.SetAccount(KeyAddress(t, keys[i]), &Account{Owner: builtin.SystemProgramID, Lamports: lamports})
		require.NoError(t, err)
	}
	return keys
}

// KeyAddress is the address of an ed25519 key.
func KeyAddress(t testing.TB, key ed25519.PrivateKey) abi.Address {
	pub, ok := key.Public().(ed25519.PublicKey)
	require.True(t, ok)
	addr, err := abi.NewAddress(pub)
	require.NoError(t, err)
	return addr
}

// ApplyOk signs and applies the instruction, failing the test unless it succeeds.
func ApplyOk(t testing.TB, vm *VM, ins Instruction, signers ...ed25519.PrivateKey) *MessageResult {
	return ApplyCode(t, vm, exitcode.Ok, ins, signers...)
}

// ApplyCode signs and applies the instruction, failing the test unless it exits with code.
func ApplyCode(t testing.TB, vm *VM, code exitcode.ExitCode, ins Instruction, signers ...ed25519.PrivateKey) *MessageResult {
	tx, err := NewTransaction(ins, signers...)
	require.NoError(t, err)
	result := vm.ApplyTransaction(tx)
	require.Equal(t, code, result.ExitCode, "unexpected exit code: %s", result.Error)
	return result
}

//
// Invocation expectations
//

type ExpectInvocation struct {
	Program  abi.Address
	Method   string
	Exitcode exitcode.ExitCode

	SubInvocations []ExpectInvocation
}

func (ei ExpectInvocation) Matches(t testing.TB, invocation *Invocation) {
	ei.matches(t, "", invocation)
}

func (ei ExpectInvocation) matches(t testing.TB, breadcrumb string, invocation *Invocation) {
	identifier := fmt.Sprintf("%s[%s:%s]", breadcrumb, invocation.Program, invocation.Method)

	// mismatch of program or method probably indicates skipped calls or calls out of order. halt.
	require.Equal(t, ei.Program, invocation.Program, "%s unexpected program", identifier)
	require.Equal(t, ei.Method, invocation.Method, "%s unexpected method", identifier)

	if ei.SubInvocations != nil {
		for i, invk := range invocation.SubInvocations {
			subidentifier := fmt.Sprintf("%s%d:", identifier, i)
			require.Greater(t, len(ei.SubInvocations), i, "%s unexpected subinvocation [%s:%s]", subidentifier, invk.Program, invk.Method)
			ei.SubInvocations[i].matches(t, subidentifier, invk)
		}
		missingInvocations := len(ei.SubInvocations) - len(invocation.SubInvocations)
		if missingInvocations > 0 {
			missingIndex := len(invocation.SubInvocations)
			missingExpect := ei.SubInvocations[missingIndex]
			require.Fail(t, fmt.Sprintf("%s%d: expected invocation [%s:%s]", identifier, missingIndex, missingExpect.Program, missingExpect.Method))
		}
	}

	assert.Equal(t, ei.Exitcode, invocation.Exitcode, "%s unexpected exitcode", identifier)
}
