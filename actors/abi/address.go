package abi

import (
	"bytes"

	"github.com/mr-tron/base58"
	"golang.org/x/xerrors"
)

// AddressLength is the size of every account address: an ed25519 public key or a derived
// program address.
const AddressLength = 32

// Address identifies an account on the ledger.
type Address [AddressLength]byte

// Undef is the zero address. It is never a valid wallet.
var Undef = Address{}

// NewAddress copies a 32-byte slice into an Address.
func NewAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, xerrors.Errorf("invalid address length %d, expected %d", len(b), AddressLength)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress for package-level constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAddress decodes the base58 text form of an address.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Undef, xerrors.Errorf("failed to decode address %q: %w", s, err)
	}
	return NewAddress(raw)
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Undef
}

func (a Address) Less(o Address) bool {
	return bytes.Compare(a[:], o[:]) < 0
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
