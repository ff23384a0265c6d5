package vesting

import (
	"github.com/ondrix/vesting-actors/actors/abi"
)

// Maximum number of recipient slots in a vesting record.
const MaxRecipients = 10

// Longest vesting period a record may declare.
const MaxVestingDuration = 4 * abi.Year

// Longest cliff a record may declare.
const MaxCliffDuration = 1 * abi.Year

// Minimum time between two successful distributions of the same record.
const DistributionCooldown = 60 * abi.Second

// Seed prefixes of the derived addresses owned by the program.
var (
	RecordSeed    = []byte("vesting")
	VaultSeed     = []byte("vault")
	AuthoritySeed = []byte("authority")
)
