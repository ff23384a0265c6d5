package testing

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// NewKey returns a deterministic ed25519 key derived from an integer seed.
func NewKey(t testing.TB, seed uint64) ed25519.PrivateKey {
	buf := make([]byte, ed25519.SeedSize)
	binary.LittleEndian.PutUint64(buf, seed+1)
	return ed25519.NewKeyFromSeed(buf)
}

// NewAddr returns the public key of NewKey(seed) as an address.
func NewAddr(t testing.TB, seed uint64) abi.Address {
	pub, ok := NewKey(t, seed).Public().(ed25519.PublicKey)
	require.True(t, ok)
	address, err := abi.NewAddress(pub)
	require.NoError(t, err)
	return address
}

// NewAddrs returns n distinct addresses starting at seed.
func NewAddrs(t testing.TB, seed uint64, n int) []abi.Address {
	out := make([]abi.Address, n)
	for i := range out {
		out[i] = NewAddr(t, seed+uint64(i))
	}
	return out
}
