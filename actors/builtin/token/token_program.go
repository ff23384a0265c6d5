package token

import (
	"fmt"

	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// Error is a token program failure carrying the exit code reported to the calling program.
type Error struct {
	Code exitcode.ExitCode
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("token program: %s (%v)", e.Msg, e.Code)
}

func errorf(code exitcode.ExitCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// InitializeAccount turns freshly allocated account data into an empty balance of `mint` owned by `owner`.
func InitializeAccount(existing *Account, mint *Mint, mintAddr, owner abi.Address) (*Account, error) {
	if existing != nil && existing.IsInitialized() {
		return nil, errorf(exitcode.ErrIllegalState, "account already initialized")
	}
	if mint == nil || !mint.IsInitialized {
		return nil, errorf(exitcode.ErrIllegalArgument, "mint %v not initialized", mintAddr)
	}
	return &Account{
		Mint:   mintAddr,
		Owner:  owner,
		Amount: 0,
		State:  Initialized,
	}, nil
}

// Transfer moves `amount` from src to dst. The authority must be the owner of src.
func Transfer(src, dst *Account, authority abi.Address, amount abi.TokenAmount) error {
	if !src.IsInitialized() || !dst.IsInitialized() {
		return errorf(exitcode.ErrIllegalState, "uninitialized token account")
	}
	if src.State == Frozen || dst.State == Frozen {
		return errorf(exitcode.ErrForbidden, "token account is frozen")
	}
	if src.Mint != dst.Mint {
		return errorf(exitcode.ErrIllegalArgument, "mint mismatch %v != %v", src.Mint, dst.Mint)
	}
	if src.Owner != authority {
		return errorf(exitcode.ErrForbidden, "authority %v does not own the source account", authority)
	}
	if src.Amount < amount {
		return errorf(exitcode.ErrInsufficientFunds, "insufficient funds: balance %d, transfer %d", src.Amount, amount)
	}
	if dst.Amount+amount < dst.Amount {
		return errorf(exitcode.ErrIllegalState, "destination balance overflow")
	}
	src.Amount -= amount
	dst.Amount += amount
	return nil
}

// MintTo creates `amount` new tokens in dst. The authority must be the mint authority.
func MintTo(mint *Mint, mintAddr abi.Address, dst *Account, authority abi.Address, amount abi.TokenAmount) error {
	if !mint.IsInitialized {
		return errorf(exitcode.ErrIllegalState, "mint not initialized")
	}
	if mint.MintAuthority != authority {
		return errorf(exitcode.ErrForbidden, "authority %v cannot mint %v", authority, mintAddr)
	}
	if !dst.IsInitialized() || dst.Mint != mintAddr {
		return errorf(exitcode.ErrIllegalArgument, "destination is not an account of mint %v", mintAddr)
	}
	if mint.Supply+amount < mint.Supply || dst.Amount+amount < dst.Amount {
		return errorf(exitcode.ErrIllegalState, "supply overflow")
	}
	mint.Supply += amount
	dst.Amount += amount
	return nil
}
