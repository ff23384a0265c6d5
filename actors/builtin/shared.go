package builtin

import (
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

///// Code shared by multiple programs. /////

// Propagates a failed cross-program call by aborting the current method with the same exit code.
func RequireSuccess(rt runtime.Runtime, e exitcode.ExitCode, msg string, args ...interface{}) {
	if !e.IsSuccess() {
		rt.Abortf(e, msg, args...)
	}
}

// Aborts with an ErrIllegalState if predicate is not true.
func RequireState(rt runtime.Runtime, predicate bool, msg string, args ...interface{}) {
	if !predicate {
		rt.Abortf(exitcode.ErrIllegalState, msg, args...)
	}
}

// Aborts with a formatted message if err is not nil.
// The provided message will be suffixed by ": %s" and the provided args suffixed by the err.
func RequireNoErr(rt runtime.Runtime, err error, defaultExitCode exitcode.ExitCode, msg string, args ...interface{}) {
	if err != nil {
		newMsg := msg + ": %s"
		newArgs := append(args, err)
		rt.Abortf(defaultExitCode, newMsg, newArgs...)
	}
}

// RequireAccounts aborts unless at least n accounts were supplied, and returns them.
func RequireAccounts(rt runtime.Runtime, n int, code exitcode.ExitCode) []*runtime.AccountInfo {
	accounts := rt.Accounts()
	if len(accounts) < n {
		rt.Abortf(code, "expected at least %d accounts, got %d", n, len(accounts))
	}
	return accounts
}

// RequireProgram aborts unless the account is the expected well-known program.
func RequireProgram(rt runtime.Runtime, account *runtime.AccountInfo, expected abi.Address, code exitcode.ExitCode, name string) {
	if account.Key != expected {
		rt.Abortf(code, "invalid %s program %v, expected %v", name, account.Key, expected)
	}
}

// FindAccount returns the account with the given key from the instruction's account list.
func FindAccount(accounts []*runtime.AccountInfo, key abi.Address) (*runtime.AccountInfo, bool) {
	for _, a := range accounts {
		if a.Key == key {
			return a, true
		}
	}
	return nil, false
}
