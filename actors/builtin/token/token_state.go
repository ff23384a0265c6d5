package token

import (
	"github.com/iotaledger/hive.go/core/marshalutil"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
)

const (
	// AccountSize is the encoded size of a token account.
	AccountSize = 32 + 32 + 8 + 1
	// MintSize is the encoded size of a mint.
	MintSize = 1 + 1 + 8 + 32
)

type AccountState uint8

const (
	Uninitialized AccountState = iota
	Initialized
	Frozen
)

// Account is a balance of one mint held on behalf of an owner.
type Account struct {
	Mint   abi.Address
	Owner  abi.Address
	Amount abi.TokenAmount
	State  AccountState
}

// Mint describes a fungible token.
type Mint struct {
	IsInitialized bool
	Decimals      uint8
	Supply        abi.TokenAmount
	MintAuthority abi.Address
}

func (a *Account) IsInitialized() bool {
	return a.State != Uninitialized
}

func (a *Account) Bytes() []byte {
	m := marshalutil.New(AccountSize)
	m.WriteBytes(a.Mint[:])
	m.WriteBytes(a.Owner[:])
	m.WriteUint64(a.Amount)
	m.WriteUint8(uint8(a.State))
	return m.Bytes()
}

// UnpackAccount decodes a token account. The data must be exactly AccountSize bytes.
func UnpackAccount(data []byte) (*Account, error) {
	if len(data) != AccountSize {
		return nil, xerrors.Errorf("token account data length %d, expected %d", len(data), AccountSize)
	}
	m := marshalutil.New(data)
	var a Account
	var err error
	if err = readAddress(m, &a.Mint); err != nil {
		return nil, xerrors.Errorf("failed to read mint: %w", err)
	}
	if err = readAddress(m, &a.Owner); err != nil {
		return nil, xerrors.Errorf("failed to read owner: %w", err)
	}
	if a.Amount, err = m.ReadUint64(); err != nil {
		return nil, xerrors.Errorf("failed to read amount: %w", err)
	}
	state, err := m.ReadUint8()
	if err != nil {
		return nil, xerrors.Errorf("failed to read state: %w", err)
	}
	if state > uint8(Frozen) {
		return nil, xerrors.Errorf("invalid token account state %d", state)
	}
	a.State = AccountState(state)
	return &a, nil
}

func (mt *Mint) Bytes() []byte {
	m := marshalutil.New(MintSize)
	m.WriteUint8(boolByte(mt.IsInitialized))
	m.WriteUint8(mt.Decimals)
	m.WriteUint64(mt.Supply)
	m.WriteBytes(mt.MintAuthority[:])
	return m.Bytes()
}

// UnpackMint decodes a mint. The data must be exactly MintSize bytes.
func UnpackMint(data []byte) (*Mint, error) {
	if len(data) != MintSize {
		return nil, xerrors.Errorf("mint data length %d, expected %d", len(data), MintSize)
	}
	m := marshalutil.New(data)
	var mt Mint
	initialized, err := m.ReadUint8()
	if err != nil {
		return nil, err
	}
	if initialized > 1 {
		return nil, xerrors.Errorf("invalid mint initialized flag %d", initialized)
	}
	mt.IsInitialized = initialized == 1
	if mt.Decimals, err = m.ReadUint8(); err != nil {
		return nil, err
	}
	if mt.Supply, err = m.ReadUint64(); err != nil {
		return nil, err
	}
	if err = readAddress(m, &mt.MintAuthority); err != nil {
		return nil, err
	}
	return &mt, nil
}

// AssociatedAddress derives the canonical token account of `wallet` for `mint`.
func AssociatedAddress(wallet, mint abi.Address) (abi.Address, uint8, error) {
	return abi.FindProgramAddress([][]byte{
		wallet[:],
		builtin.TokenProgramID[:],
		mint[:],
	}, builtin.AssociatedTokenProgramID)
}

func readAddress(m *marshalutil.MarshalUtil, out *abi.Address) error {
	raw, err := m.ReadBytes(abi.AddressLength)
	if err != nil {
		return err
	}
	copy(out[:], raw)
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
