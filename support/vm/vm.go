package vm

import (
	"context"
	"sort"
	"sync"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/iotaledger/hive.go/core/marshalutil"
	"github.com/multiformats/go-multihash"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

var log = logging.Logger("vm")

var systemProgram = builtin.SystemProgramID

// VM holds the ledger state and executes transactions over it.
// Transactions are applied one at a time; each sees the clock as it was when the transaction started.
type VM struct {
	ctx context.Context
	mu  sync.Mutex

	now abi.Timestamp

	programs  ProgramLookup
	accounts  map[abi.Address]*Account // The last committed state.
	stateRoot cid.Cid

	observers   []Observer
	invocations []*Invocation
	vectors     *vectorGen
}

// ProgramLookup maps deployed program addresses to their implementations.
type ProgramLookup map[abi.Address]runtime.Program

// Observer is notified after every committed transaction with the accounts it changed.
type Observer interface {
	Committed(ctx context.Context, result *MessageResult, changed map[abi.Address]*Account) error
}

// MessageResult is the receipt of one applied transaction.
type MessageResult struct {
	TxID      TxID              `json:"txid"`
	Program   abi.Address       `json:"program"`
	ExitCode  exitcode.ExitCode `json:"exitCode"`
	Error     string            `json:"error,omitempty"`
	Return    []byte            `json:"return,omitempty"`
	Logs      []string          `json:"logs,omitempty"`
	Timestamp abi.Timestamp     `json:"timestamp"`
	StateRoot cid.Cid           `json:"stateRoot"`
}

// NewVM creates a ledger holding only the native programs.
func NewVM(ctx context.Context, programs ProgramLookup) *VM {
	vm := &VM{
		ctx:      ctx,
		programs: programs,
		accounts: make(map[abi.Address]*Account),
		vectors:  newVectorGen(),
	}
	for _, p := range []abi.Address{builtin.SystemProgramID, builtin.TokenProgramID, builtin.AssociatedTokenProgramID} {
		vm.accounts[p] = &Account{Owner: builtin.SystemProgramID, Executable: true}
	}
	for p := range programs {
		vm.accounts[p] = &Account{Owner: builtin.SystemProgramID, Executable: true}
	}
	root, err := vm.computeStateRoot()
	if err != nil {
		panic(err)
	}
	vm.stateRoot = root
	return vm
}

// Now returns the ledger clock.
func (vm *VM) Now() abi.Timestamp {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.now
}

// SetNow moves the ledger clock. Transactions already executing keep the time they started with.
func (vm *VM) SetNow(now abi.Timestamp) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.now = now
}

// Advance moves the ledger clock forward by d.
func (vm *VM) Advance(d abi.Duration) abi.Timestamp {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.now = vm.now.Add(d)
	return vm.now
}

// AddObserver registers an observer for committed transactions.
func (vm *VM) AddObserver(o Observer) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.observers = append(vm.observers, o)
}

// GetAccount returns a copy of the committed account at key.
func (vm *VM) GetAccount(key abi.Address) (*Account, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	a, ok := vm.accounts[key]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// SetAccount overwrites an account outside of any transaction. Used for genesis.
func (vm *VM) SetAccount(key abi.Address, a *Account) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.accounts[key] = a.clone()
	return vm.commit()
}

// Keys lists committed accounts owned by owner, in address order.
func (vm *VM) Keys(owner abi.Address) []abi.Address {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var out []abi.Address
	for k, a := range vm.accounts {
		if a.Owner == owner {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// StateRoot is the commitment to the last committed state.
func (vm *VM) StateRoot() cid.Cid {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stateRoot
}

// Invocations returns the trace of every applied transaction.
func (vm *VM) Invocations() []*Invocation {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.invocations
}

// LastInvocation returns the trace of the most recent transaction.
func (vm *VM) LastInvocation() *Invocation {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if len(vm.invocations) == 0 {
		return nil
	}
	return vm.invocations[len(vm.invocations)-1]
}

// ApplyTransaction verifies and executes a transaction. Its effects are committed only if the
// program returns successfully; on any abort the ledger is left exactly as it was.
func (vm *VM) ApplyTransaction(tx *Transaction) *MessageResult {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	result := &MessageResult{
		Program:   tx.Instruction.Program,
		Timestamp: vm.now,
		StateRoot: vm.stateRoot,
	}
	id, err := tx.ID()
	if err != nil {
		result.ExitCode = exitcode.SysErrSenderInvalid
		result.Error = err.Error()
		return result
	}
	result.TxID = id

	signers, err := tx.verify()
	if err != nil {
		log.Debugw("rejected transaction", "txid", id, "err", err)
		result.ExitCode = exitcode.SysErrSenderInvalid
		result.Error = err.Error()
		return result
	}

	if err := vm.vectors.before(vm, id); err != nil {
		log.Warnw("failed to record vector", "err", err)
	}

	ws := newWorkingSet(vm.accounts)
	ic := newInvocationContext(vm, ws, tx, signers, vm.now)
	ret, code, msg := ic.invoke()
	vm.invocations = append(vm.invocations, ic.invocation)

	result.ExitCode = code
	result.Error = msg
	result.Return = ret
	result.Logs = ic.logs

	if code.IsSuccess() {
		changed := ws.changes()
		for key, a := range changed {
			vm.accounts[key] = a
		}
		if err := vm.commit(); err != nil {
			panic(err)
		}
		result.StateRoot = vm.stateRoot
		for _, o := range vm.observers {
			if err := o.Committed(vm.ctx, result, changed); err != nil {
				log.Warnw("observer failed", "txid", id, "err", err)
			}
		}
		log.Debugw("committed transaction", "txid", id, "program", tx.Instruction.Program, "changed", len(changed),
			"root", vm.stateRoot)
	} else {
		log.Debugw("transaction aborted", "txid", id, "program", tx.Instruction.Program, "exitCode", code,
			"error", msg)
	}

	if err := vm.vectors.after(vm, tx, result); err != nil {
		log.Warnw("failed to record vector", "err", err)
	}
	return result
}

func (vm *VM) commit() error {
	root, err := vm.computeStateRoot()
	if err != nil {
		return xerrors.Errorf("failed to compute state root: %w", err)
	}
	vm.stateRoot = root
	return nil
}

// computeStateRoot hashes every account in address order.
func (vm *VM) computeStateRoot() (cid.Cid, error) {
	keys := make([]abi.Address, 0, len(vm.accounts))
	for k := range vm.accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	m := marshalutil.New()
	for _, k := range keys {
		a := vm.accounts[k]
		m.WriteBytes(k[:])
		m.WriteBytes(a.Owner[:])
		m.WriteUint64(a.Lamports)
		m.WriteBool(a.Executable)
		m.WriteUint32(uint32(len(a.Data)))
		m.WriteBytes(a.Data)
	}
	digest, err := multihash.Sum(m.Bytes(), multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, digest), nil
}
