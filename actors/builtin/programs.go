package builtin

import (
	"github.com/ondrix/vesting-actors/actors/abi"
)

// Well-known program addresses. The host installs these programs at genesis.
var (
	SystemProgramID          = abi.MustParseAddress("11111111111111111111111111111111")
	TokenProgramID           = abi.MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = abi.MustParseAddress("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// Lamports charged per byte-year of account storage, and the number of years of rent an account
// must prepay to be exempt.
const (
	LamportsPerByteYear    = 3480
	ExemptionYears         = 2
	AccountStorageOverhead = 128
)

// MinimumBalance is the rent-exempt deposit for an account holding `space` bytes.
func MinimumBalance(space uint64) uint64 {
	return (AccountStorageOverhead + space) * LamportsPerByteYear * ExemptionYears
}
