package vm

import (
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
)

// VestingPrograms is the program set of a ledger running the vesting program.
func VestingPrograms() ProgramLookup {
	return ProgramLookup{vesting.ProgramID: vesting.Actor{}}
}

// CreateVestingInstruction builds a Create instruction and returns the addresses it will allocate.
func CreateVestingInstruction(creator, mint abi.Address, params *vesting.CreateParams) (Instruction, *vesting.Addresses, error) {
	addrs, err := vesting.DeriveAddresses(vesting.ProgramID, creator, params.Nonce)
	if err != nil {
		return Instruction{}, nil, err
	}
	data, err := params.Bytes()
	if err != nil {
		return Instruction{}, nil, err
	}
	return Instruction{
		Program: vesting.ProgramID,
		Accounts: []AccountMeta{
			Signer(creator),
			Writable(addrs.Record),
			Writable(addrs.Vault),
			Readonly(mint),
			Readonly(builtin.SystemProgramID),
			Readonly(builtin.TokenProgramID),
		},
		Data: data,
	}, addrs, nil
}

// FundVestingInstruction builds a Fund instruction moving amount from the funder's token account source.
func FundVestingInstruction(funder, source, record abi.Address, amount abi.TokenAmount) (Instruction, error) {
	vault, _, err := vesting.VaultAddress(vesting.ProgramID, record)
	if err != nil {
		return Instruction{}, err
	}
	data, err := (&vesting.FundParams{Amount: amount}).Bytes()
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Program: vesting.ProgramID,
		Accounts: []AccountMeta{
			Signer(funder),
			Writable(source),
			Writable(vault),
			Writable(record),
			Readonly(builtin.TokenProgramID),
		},
		Data: data,
	}, nil
}

// DistributeVestingInstruction builds a Distribute instruction paying every declared recipient of st
// into their associated token accounts.
func DistributeVestingInstruction(caller, record abi.Address, st *vesting.State) (Instruction, error) {
	authority, _, err := vesting.AuthorityAddress(vesting.ProgramID, record)
	if err != nil {
		return Instruction{}, err
	}
	data, err := (&vesting.DistributeParams{}).Bytes()
	if err != nil {
		return Instruction{}, err
	}
	metas := []AccountMeta{
		Signer(caller),
		Writable(record),
		Writable(st.Vault),
		Readonly(builtin.TokenProgramID),
		Readonly(authority),
	}
	for _, r := range st.ActiveRecipients() {
		ata, _, err := token.AssociatedAddress(r.Wallet, st.Mint)
		if err != nil {
			return Instruction{}, err
		}
		metas = append(metas, Writable(ata))
	}
	return Instruction{Program: vesting.ProgramID, Accounts: metas, Data: data}, nil
}

// GetVesting decodes the committed vesting record at addr.
func (vm *VM) GetVesting(addr abi.Address) (*vesting.State, error) {
	a, ok := vm.GetAccount(addr)
	if !ok {
		return nil, xerrors.Errorf("vesting record %v not found", addr)
	}
	if a.Owner != vesting.ProgramID {
		return nil, xerrors.Errorf("account %v is owned by %v, not the vesting program", addr, a.Owner)
	}
	st, err := vesting.UnpackState(a.Data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode vesting record %v: %w", addr, err)
	}
	return st, nil
}
