package abi_test

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
)

func TestAddressText(t *testing.T) {
	t.Run("system program is all zeroes", func(t *testing.T) {
		a, err := abi.ParseAddress("11111111111111111111111111111111")
		require.NoError(t, err)
		assert.True(t, a.IsZero())
		assert.Equal(t, "11111111111111111111111111111111", a.String())
	})

	t.Run("round trip", func(t *testing.T) {
		var a abi.Address
		for i := range a {
			a[i] = byte(i * 7)
		}
		parsed, err := abi.ParseAddress(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)

		text, err := a.MarshalText()
		require.NoError(t, err)
		var back abi.Address
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, a, back)
	})

	t.Run("wrong length rejected", func(t *testing.T) {
		_, err := abi.NewAddress([]byte{1, 2, 3})
		assert.Error(t, err)
		_, err = abi.ParseAddress("2g")
		assert.Error(t, err)
	})
}

func TestFindProgramAddress(t *testing.T) {
	program := abi.Address{9, 9, 9}
	creator := abi.Address{1}
	seeds := [][]byte{[]byte("vesting"), creator[:], {0, 0, 0, 0, 0, 0, 0, 1}}

	t.Run("deterministic and off curve", func(t *testing.T) {
		a1, bump1, err := abi.FindProgramAddress(seeds, program)
		require.NoError(t, err)
		a2, bump2, err := abi.FindProgramAddress(seeds, program)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
		assert.Equal(t, bump1, bump2)
		assert.False(t, abi.IsOnCurve(a1[:]))
	})

	t.Run("bump reproduces the address", func(t *testing.T) {
		found, bump, err := abi.FindProgramAddress(seeds, program)
		require.NoError(t, err)
		created, err := abi.CreateProgramAddress(append(seeds, []byte{bump}), program)
		require.NoError(t, err)
		assert.Equal(t, found, created)
	})

	t.Run("different program gives different address", func(t *testing.T) {
		a1, _, err := abi.FindProgramAddress(seeds, program)
		require.NoError(t, err)
		a2, _, err := abi.FindProgramAddress(seeds, abi.Address{8})
		require.NoError(t, err)
		assert.NotEqual(t, a1, a2)
	})

	t.Run("seed too long", func(t *testing.T) {
		_, _, err := abi.FindProgramAddress([][]byte{bytes.Repeat([]byte{1}, 33)}, program)
		assert.Equal(t, abi.ErrMaxSeedLengthExceeded, err)
	})

	t.Run("too many seeds", func(t *testing.T) {
		many := make([][]byte, abi.MaxSeeds)
		_, _, err := abi.FindProgramAddress(many, program)
		assert.Equal(t, abi.ErrTooManySeeds, err)
	})
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	assert.True(t, abi.IsOnCurve(pub))
	assert.False(t, abi.IsOnCurve([]byte{1, 2}))
}
