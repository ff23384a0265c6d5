package vm

import (
	"os"

	"github.com/iotaledger/hive.go/core/ioutils"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// Snapshot is the persisted form of the ledger.
type Snapshot struct {
	Now      abi.Timestamp            `json:"now"`
	Accounts map[abi.Address]*Account `json:"accounts"`
}

// Snapshot copies the committed state.
func (vm *VM) Snapshot() *Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	snap := &Snapshot{Now: vm.now, Accounts: make(map[abi.Address]*Account, len(vm.accounts))}
	for k, a := range vm.accounts {
		snap.Accounts[k] = a.clone()
	}
	return snap
}

// Restore replaces the ledger state with the snapshot. Program accounts present in the ledger are kept.
func (vm *VM) Restore(snap *Snapshot) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	accounts := make(map[abi.Address]*Account, len(snap.Accounts))
	for k, a := range vm.accounts {
		if a.Executable {
			accounts[k] = a
		}
	}
	for k, a := range snap.Accounts {
		accounts[k] = a.clone()
	}
	vm.accounts = accounts
	vm.now = snap.Now
	return vm.commit()
}

// SaveSnapshot writes the committed state to a JSON file.
func (vm *VM) SaveSnapshot(path string) error {
	if err := ioutils.WriteJSONToFile(path, vm.Snapshot(), 0o600); err != nil {
		return xerrors.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot restores the ledger from a JSON file written by SaveSnapshot.
func (vm *VM) LoadSnapshot(path string) error {
	if _, err := os.Stat(path); err != nil {
		return xerrors.Errorf("snapshot %s: %w", path, err)
	}
	snap := &Snapshot{}
	if err := ioutils.ReadJSONFromFile(path, snap); err != nil {
		return xerrors.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return vm.Restore(snap)
}
