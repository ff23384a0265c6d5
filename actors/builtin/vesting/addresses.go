package vesting

import (
	"github.com/iotaledger/hive.go/core/marshalutil"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

// Addresses are the derived accounts of one vesting record.
type Addresses struct {
	Record        abi.Address
	RecordBump    uint8
	Vault         abi.Address
	VaultBump     uint8
	Authority     abi.Address
	AuthorityBump uint8
}

// DeriveAddresses computes the record, vault and vault authority addresses for a creator and nonce.
func DeriveAddresses(program, creator abi.Address, nonce uint64) (*Addresses, error) {
	var out Addresses
	var err error
	if out.Record, out.RecordBump, err = RecordAddress(program, creator, nonce); err != nil {
		return nil, err
	}
	if out.Vault, out.VaultBump, err = VaultAddress(program, out.Record); err != nil {
		return nil, err
	}
	if out.Authority, out.AuthorityBump, err = AuthorityAddress(program, out.Record); err != nil {
		return nil, err
	}
	return &out, nil
}

func RecordAddress(program, creator abi.Address, nonce uint64) (abi.Address, uint8, error) {
	return abi.FindProgramAddress([][]byte{RecordSeed, creator[:], nonceBytes(nonce)}, program)
}

func VaultAddress(program, record abi.Address) (abi.Address, uint8, error) {
	return abi.FindProgramAddress([][]byte{VaultSeed, record[:]}, program)
}

func AuthorityAddress(program, record abi.Address) (abi.Address, uint8, error) {
	return abi.FindProgramAddress([][]byte{AuthoritySeed, record[:]}, program)
}

// Signing seeds, bump included, for each derived account.

func RecordSeeds(creator abi.Address, nonce uint64, bump uint8) runtime.Seeds {
	return runtime.Seeds{RecordSeed, creator[:], nonceBytes(nonce), {bump}}
}

func VaultSeeds(record abi.Address, bump uint8) runtime.Seeds {
	return runtime.Seeds{VaultSeed, record[:], {bump}}
}

func AuthoritySeeds(record abi.Address, bump uint8) runtime.Seeds {
	return runtime.Seeds{AuthoritySeed, record[:], {bump}}
}

func nonceBytes(nonce uint64) []byte {
	return marshalutil.New(8).WriteUint64(nonce).Bytes()
}
