package vm

import (
	"bytes"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

// Account is a ledger account as held by the host.
type Account struct {
	Owner      abi.Address `json:"owner"`
	Lamports   uint64      `json:"lamports"`
	Data       []byte      `json:"data"`
	Executable bool        `json:"executable,omitempty"`
}

func (a *Account) clone() *Account {
	cpy := *a
	cpy.Data = bytes.Clone(a.Data)
	return &cpy
}

func (a *Account) equal(o *Account) bool {
	return a.Owner == o.Owner && a.Lamports == o.Lamports && a.Executable == o.Executable && bytes.Equal(a.Data, o.Data)
}

// An account that was never touched reads as an empty system account.
func emptyAccount() *Account {
	return &Account{Owner: systemProgram}
}

// AccountMeta is one entry of an instruction's account list.
type AccountMeta struct {
	Key        abi.Address `json:"key"`
	IsSigner   bool        `json:"signer,omitempty"`
	IsWritable bool        `json:"writable,omitempty"`
}

func Signer(key abi.Address) AccountMeta   { return AccountMeta{Key: key, IsSigner: true, IsWritable: true} }
func Writable(key abi.Address) AccountMeta { return AccountMeta{Key: key, IsWritable: true} }
func Readonly(key abi.Address) AccountMeta { return AccountMeta{Key: key} }

// workingSet buffers account changes of one transaction until commit.
type workingSet struct {
	base    map[abi.Address]*Account
	touched map[abi.Address]*Account
}

func newWorkingSet(base map[abi.Address]*Account) *workingSet {
	return &workingSet{base: base, touched: make(map[abi.Address]*Account)}
}

// get returns the working copy of an account, copying it from the committed state on first access.
func (ws *workingSet) get(key abi.Address) *Account {
	if a, ok := ws.touched[key]; ok {
		return a
	}
	var a *Account
	if committed, ok := ws.base[key]; ok {
		a = committed.clone()
	} else {
		a = emptyAccount()
	}
	ws.touched[key] = a
	return a
}

// changes lists the accounts whose content differs from the committed state.
func (ws *workingSet) changes() map[abi.Address]*Account {
	out := make(map[abi.Address]*Account)
	for key, a := range ws.touched {
		committed, ok := ws.base[key]
		if !ok {
			committed = emptyAccount()
		}
		if !a.equal(committed) {
			out[key] = a
		}
	}
	return out
}

func (ws *workingSet) info(meta AccountMeta) *runtime.AccountInfo {
	a := ws.get(meta.Key)
	return &runtime.AccountInfo{
		Key:        meta.Key,
		Owner:      a.Owner,
		IsSigner:   meta.IsSigner,
		IsWritable: meta.IsWritable,
		Lamports:   a.Lamports,
		Data:       bytes.Clone(a.Data),
	}
}
