package abi

import (
	"filippo.io/edwards25519"
	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/xerrors"
)

const (
	// Maximum number of seeds, bump included, accepted by address derivation.
	MaxSeeds = 16
	// Maximum length in bytes of a single seed.
	MaxSeedLength = 32
)

var derivedAddressMarker = []byte("ProgramDerivedAddress")

var (
	ErrMaxSeedLengthExceeded = xerrors.New("length of a seed exceeds the maximum")
	ErrTooManySeeds          = xerrors.New("number of seeds exceeds the maximum")
	ErrInvalidSeeds          = xerrors.New("seeds produce an address on the ed25519 curve")
	ErrNoViableBump          = xerrors.New("unable to find a viable bump seed")
)

// CreateProgramAddress hashes the seeds with the program ID. An address which is a valid curve
// point could have a private key, so such results are rejected.
func CreateProgramAddress(seeds [][]byte, program Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Undef, ErrTooManySeeds
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return Undef, ErrMaxSeedLengthExceeded
		}
		h.Write(s)
	}
	h.Write(program[:])
	h.Write(derivedAddressMarker)

	var out Address
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out[:]) {
		return Undef, ErrInvalidSeeds
	}
	return out, nil
}

// FindProgramAddress searches bump values from 255 downwards and returns the first derived
// address that is off the curve, together with its bump.
func FindProgramAddress(seeds [][]byte, program Address) (Address, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if err != ErrInvalidSeeds {
			return Undef, 0, err
		}
	}
	return Undef, 0, ErrNoViableBump
}

// IsOnCurve reports whether b is the compressed encoding of an ed25519 point.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
