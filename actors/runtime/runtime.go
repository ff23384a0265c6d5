package runtime

import (
	"io"

	"github.com/filecoin-project/go-state-types/exitcode"
	rtt "github.com/filecoin-project/go-state-types/rt"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// Runtime is the ledger's internal runtime object.
// This is everything that is accessible to a program, beyond its instruction data.
type Runtime interface {
	// The address of the executing program.
	ProgramID() abi.Address

	// The ledger clock. It is sampled once per transaction, so repeated calls return the same value.
	Now() abi.Timestamp

	// The accounts referenced by the instruction, in the order the caller supplied them.
	// Data and ownership reflect all effects applied so far in the current transaction.
	Accounts() []*AccountInfo

	// Replaces the data of an account owned by the executing program. The new data must have
	// exactly the length of the allocated account.
	WriteAccountData(account abi.Address, data []byte)

	// Asks the system program to allocate `space` bytes at `account` owned by `owner`, paying the
	// rent-exempt minimum from `payer`. A derived account signs by presenting its seeds.
	CreateAccount(payer, account abi.Address, space uint64, owner abi.Address, seeds Seeds) exitcode.ExitCode

	// Asks the token program to initialize `account` as a token account of `mint` owned by `authority`.
	InitializeTokenAccount(account, mint, authority abi.Address) exitcode.ExitCode

	// Asks the token program to move `amount` from `source` to `destination`. The `authority` must
	// either have signed the transaction or be derived from the executing program by `seeds`.
	Transfer(source, destination, authority abi.Address, amount abi.TokenAmount, seeds Seeds) exitcode.ExitCode

	// Halts execution upon an error from which the program cannot recover. The caller will receive the
	// exit code and an empty return value. State changes made within this transaction will be rolled back.
	// This method does not return.
	// The message and args are for diagnostic purposes and do not persist on the ledger. They should be
	// suitable for passing to fmt.Errorf(msg, args...).
	Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{})

	// Log appends a line to the transaction's program log.
	Log(level rtt.LogLevel, msg string, args ...interface{})

	// Starts a new tracing span. The span must be End()ed explicitly, typically with a deferred invocation.
	StartSpan(name string) TraceSpan
}

// Provides (minimal) tracing facilities to program code.
type TraceSpan interface {
	// Ends the span
	End()
}

// AccountInfo is the view of one account passed to a program.
type AccountInfo struct {
	Key        abi.Address
	Owner      abi.Address
	IsSigner   bool
	IsWritable bool
	Lamports   uint64
	Data       []byte
}

// IsEmpty reports whether the account has never been allocated.
func (a *AccountInfo) IsEmpty() bool {
	return len(a.Data) == 0
}

// Seeds are the derivation seeds, bump included, that let a program sign for a derived address.
type Seeds [][]byte

// These interfaces are intended to match those from whyrusleeping/cbor-gen, such that code generated from that
// system is automatically usable here (but not mandatory).
type CBORMarshaler interface {
	MarshalCBOR(w io.Writer) error
}

type CBORUnmarshaler interface {
	UnmarshalCBOR(r io.Reader) error
}

type CBORer interface {
	CBORMarshaler
	CBORUnmarshaler
}

// Wraps already-serialized bytes as CBOR-marshalable.
type CBORBytes []byte

func (b CBORBytes) MarshalCBOR(w io.Writer) error {
	_, err := w.Write(b)
	return err
}
