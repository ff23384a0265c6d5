package vesting

import (
	"fmt"

	"github.com/filecoin-project/go-state-types/exitcode"
	"golang.org/x/xerrors"
)

// Program-specific exit codes.
const (
	ErrNotSigner = exitcode.FirstActorSpecificExitCode + iota
	ErrInvalidSystemProgram
	ErrInvalidTokenProgram
	ErrInvalidVestingPeriod
	ErrCliffExceedsVesting
	ErrInvalidBasisPoints
	ErrInvalidRecipientCount
	ErrInvalidTotalBasisPoints
	ErrDuplicateRecipient
	ErrZeroBasisPoints
	ErrInvalidDerivedAddress
	ErrAlreadyInitialized
	ErrNotInitialized
	ErrAlreadyFunded
	ErrInvalidAmount
	ErrInvalidTokenOwner
	ErrMintMismatch
	ErrInsufficientFunds
	ErrNotFunded
	ErrInvalidAuthority
	ErrInvalidRecipientTokenAccount
	ErrNoClaimableAmount
	ErrUnauthorized
	ErrOverflow
	ErrInvalidInstructionData
	ErrVestingFinalized
	ErrNotFinalized
	ErrDistributionCooldown
	ErrVestingDurationTooLong
	ErrCliffDurationTooLong
	ErrInvalidAccountOwner
	ErrInvalidMint
	ErrInvalidAccountCount
	ErrInvalidRecipientWallet
	ErrInvalidAccountData
	ErrAccountNotWritable
)

var errorNames = map[exitcode.ExitCode]string{
	ErrNotSigner:                    "not a signer",
	ErrInvalidSystemProgram:         "invalid system program",
	ErrInvalidTokenProgram:          "invalid token program",
	ErrInvalidVestingPeriod:         "invalid vesting period",
	ErrCliffExceedsVesting:          "cliff period exceeds vesting period",
	ErrInvalidBasisPoints:           "invalid basis points",
	ErrInvalidRecipientCount:        "invalid recipient count",
	ErrInvalidTotalBasisPoints:      "basis points must sum to 10000",
	ErrDuplicateRecipient:           "duplicate recipient",
	ErrZeroBasisPoints:              "zero basis points not allowed",
	ErrInvalidDerivedAddress:        "invalid derived address",
	ErrAlreadyInitialized:           "already initialized",
	ErrNotInitialized:               "not initialized",
	ErrAlreadyFunded:                "already funded",
	ErrInvalidAmount:                "invalid amount",
	ErrInvalidTokenOwner:            "invalid token owner",
	ErrMintMismatch:                 "mint mismatch",
	ErrInsufficientFunds:            "insufficient funds",
	ErrNotFunded:                    "not funded",
	ErrInvalidAuthority:             "invalid authority",
	ErrInvalidRecipientTokenAccount: "invalid recipient token account",
	ErrNoClaimableAmount:            "no claimable amount",
	ErrUnauthorized:                 "unauthorized access",
	ErrOverflow:                     "overflow in calculation",
	ErrInvalidInstructionData:       "invalid instruction data",
	ErrVestingFinalized:             "vesting finalized",
	ErrNotFinalized:                 "not finalized",
	ErrDistributionCooldown:         "distribution cooldown",
	ErrVestingDurationTooLong:       "vesting duration too long",
	ErrCliffDurationTooLong:         "cliff duration too long",
	ErrInvalidAccountOwner:          "invalid account owner",
	ErrInvalidMint:                  "invalid mint",
	ErrInvalidAccountCount:          "invalid account count",
	ErrInvalidRecipientWallet:       "invalid recipient wallet",
	ErrInvalidAccountData:           "invalid account data",
	ErrAccountNotWritable:           "account not writable",
}

// ErrorName describes a program exit code, falling back to the generic exit code name.
func ErrorName(code exitcode.ExitCode) string {
	if name, ok := errorNames[code]; ok {
		return name
	}
	return fmt.Sprintf("exit code %d", int64(code))
}

// FailureClass groups exit codes by what the caller got wrong.
type FailureClass int

const (
	ClassNone FailureClass = iota
	ClassMalformedInput
	ClassAuthorization
	ClassStatePrecondition
	ClassAccountShape
	ClassArithmetic
	ClassExternal
)

func (c FailureClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassMalformedInput:
		return "malformed-input"
	case ClassAuthorization:
		return "authorization"
	case ClassStatePrecondition:
		return "state-precondition"
	case ClassAccountShape:
		return "account-shape"
	case ClassArithmetic:
		return "arithmetic"
	default:
		return "external"
	}
}

// Classify maps an exit code to its failure class.
func Classify(code exitcode.ExitCode) FailureClass {
	switch code {
	case exitcode.Ok:
		return ClassNone
	case ErrInvalidInstructionData, ErrInvalidVestingPeriod, ErrCliffExceedsVesting, ErrInvalidBasisPoints,
		ErrInvalidRecipientCount, ErrInvalidTotalBasisPoints, ErrDuplicateRecipient, ErrZeroBasisPoints,
		ErrInvalidAmount, ErrVestingDurationTooLong, ErrCliffDurationTooLong, ErrInvalidRecipientWallet,
		ErrInvalidAccountCount:
		return ClassMalformedInput
	case ErrNotSigner, ErrUnauthorized, ErrInvalidDerivedAddress, ErrInvalidAuthority, ErrInvalidSystemProgram,
		ErrInvalidTokenProgram:
		return ClassAuthorization
	case ErrAlreadyInitialized, ErrNotInitialized, ErrAlreadyFunded, ErrNotFunded, ErrVestingFinalized,
		ErrNotFinalized, ErrDistributionCooldown, ErrNoClaimableAmount, ErrInsufficientFunds:
		return ClassStatePrecondition
	case ErrInvalidTokenOwner, ErrMintMismatch, ErrInvalidRecipientTokenAccount, ErrInvalidAccountOwner,
		ErrInvalidMint, ErrInvalidAccountData, ErrAccountNotWritable:
		return ClassAccountShape
	case ErrOverflow:
		return ClassArithmetic
	default:
		return ClassExternal
	}
}

// codedError is a decode failure that knows which exit code it should abort with.
type codedError struct {
	code exitcode.ExitCode
	msg  string
}

func (e *codedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrorName(e.code), e.msg)
}

func newCodedError(code exitcode.ExitCode, format string, args ...interface{}) error {
	return &codedError{code: code, msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the exit code attached to err, or returns def.
func CodeOf(err error, def exitcode.ExitCode) exitcode.ExitCode {
	var ce *codedError
	if xerrors.As(err, &ce) {
		return ce.code
	}
	return def
}
