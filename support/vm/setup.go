package vm

import (
	"github.com/filecoin-project/go-state-types/exitcode"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
)

// Genesis describes the initial ledger: funded wallets, mints, and token balances.
type Genesis struct {
	Now      abi.Timestamp    `json:"now"`
	Wallets  []GenesisWallet  `json:"wallets"`
	Mints    []GenesisMint    `json:"mints"`
	Balances []GenesisBalance `json:"balances"`
}

type GenesisWallet struct {
	Address  abi.Address `json:"address"`
	Lamports uint64      `json:"lamports"`
}

type GenesisMint struct {
	Address   abi.Address `json:"address"`
	Decimals  uint8       `json:"decimals"`
	Authority abi.Address `json:"authority"`
}

// GenesisBalance mints Amount of Mint into the associated token account of Owner.
type GenesisBalance struct {
	Owner  abi.Address     `json:"owner"`
	Mint   abi.Address     `json:"mint"`
	Amount abi.TokenAmount `json:"amount"`
}

// ApplyGenesis installs the genesis accounts.
func (vm *VM) ApplyGenesis(g *Genesis) error {
	vm.SetNow(g.Now)
	for _, w := range g.Wallets {
		if err := vm.SetAccount(w.Address, &Account{Owner: builtin.SystemProgramID, Lamports: w.Lamports}); err != nil {
			return err
		}
	}
	for _, m := range g.Mints {
		if err := vm.CreateMint(m.Address, m.Decimals, m.Authority); err != nil {
			return xerrors.Errorf("failed to create mint %v: %w", m.Address, err)
		}
	}
	for _, b := range g.Balances {
		if _, err := vm.MintToOwner(b.Mint, b.Owner, b.Amount); err != nil {
			return xerrors.Errorf("failed to mint %d of %v to %v: %w", b.Amount, b.Mint, b.Owner, err)
		}
	}
	return nil
}

// CreateMint installs an initialized mint with zero supply.
func (vm *VM) CreateMint(addr abi.Address, decimals uint8, authority abi.Address) error {
	if _, ok := vm.GetAccount(addr); ok {
		return xerrors.Errorf("account %v already exists", addr)
	}
	m := token.Mint{IsInitialized: true, Decimals: decimals, MintAuthority: authority}
	return vm.SetAccount(addr, &Account{
		Owner:    builtin.TokenProgramID,
		Lamports: builtin.MinimumBalance(token.MintSize),
		Data:     m.Bytes(),
	})
}

// CreateTokenAccount installs an empty token account of mint held by owner at addr.
func (vm *VM) CreateTokenAccount(addr, mint, owner abi.Address) error {
	if _, ok := vm.GetAccount(addr); ok {
		return xerrors.Errorf("account %v already exists", addr)
	}
	mintAcct, ok := vm.GetAccount(mint)
	if !ok {
		return xerrors.Errorf("mint %v not found", mint)
	}
	m, err := token.UnpackMint(mintAcct.Data)
	if err != nil {
		return err
	}
	acct, err := token.InitializeAccount(nil, m, mint, owner)
	if err != nil {
		return err
	}
	return vm.SetAccount(addr, &Account{
		Owner:    builtin.TokenProgramID,
		Lamports: builtin.MinimumBalance(token.AccountSize),
		Data:     acct.Bytes(),
	})
}

// MintToOwner mints into the associated token account of owner, creating it if needed, and returns its address.
func (vm *VM) MintToOwner(mint, owner abi.Address, amount abi.TokenAmount) (abi.Address, error) {
	ata, _, err := token.AssociatedAddress(owner, mint)
	if err != nil {
		return abi.Undef, err
	}
	if _, ok := vm.GetAccount(ata); !ok {
		if err := vm.CreateTokenAccount(ata, mint, owner); err != nil {
			return abi.Undef, err
		}
	}
	return ata, vm.MintTo(mint, ata, amount)
}

// MintTo credits amount of mint to the token account dst, signed by the mint authority.
func (vm *VM) MintTo(mint, dst abi.Address, amount abi.TokenAmount) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	mintAcct, ok := vm.accounts[mint]
	if !ok {
		return xerrors.Errorf("mint %v not found", mint)
	}
	dstAcct, ok := vm.accounts[dst]
	if !ok {
		return xerrors.Errorf("token account %v not found", dst)
	}
	m, err := token.UnpackMint(mintAcct.Data)
	if err != nil {
		return err
	}
	acct, err := token.UnpackAccount(dstAcct.Data)
	if err != nil {
		return err
	}
	if err := token.MintTo(m, mint, acct, m.MintAuthority, amount); err != nil {
		return err
	}
	mintAcct.Data = m.Bytes()
	dstAcct.Data = acct.Bytes()
	return vm.commit()
}

// TokenBalance reads the balance of a token account.
func (vm *VM) TokenBalance(addr abi.Address) (abi.TokenAmount, error) {
	a, ok := vm.GetAccount(addr)
	if !ok {
		return 0, xerrors.Errorf("token account %v not found", addr)
	}
	acct, err := token.UnpackAccount(a.Data)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// Ok reports whether the transaction committed.
func (r *MessageResult) Ok() bool {
	return r.ExitCode == exitcode.Ok
}
