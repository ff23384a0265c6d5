package vm

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"github.com/filecoin-project/go-state-types/exitcode"
	rtt "github.com/filecoin-project/go-state-types/rt"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

// Invocation records a program call and the native program calls it made.
type Invocation struct {
	Program        abi.Address
	Method         string
	Accounts       []AccountMeta
	Data           []byte
	Exitcode       exitcode.ExitCode
	Ret            []byte
	SubInvocations []*Invocation
}

// invocationContext implements runtime.Runtime for one top-level instruction.
type invocationContext struct {
	vm      *VM
	ws      *workingSet
	tx      *Transaction
	signers map[abi.Address]bool
	now     abi.Timestamp
	views   []*runtime.AccountInfo

	logs       []string
	invocation *Invocation
}

var _ runtime.Runtime = (*invocationContext)(nil)

func newInvocationContext(vm *VM, ws *workingSet, tx *Transaction, signers map[abi.Address]bool, now abi.Timestamp) *invocationContext {
	ins := tx.Instruction
	views := make([]*runtime.AccountInfo, len(ins.Accounts))
	for i, m := range ins.Accounts {
		views[i] = ws.info(m)
	}
	method := "invoke"
	if len(ins.Data) > 0 {
		method = fmt.Sprintf("%d", ins.Data[0])
	}
	return &invocationContext{
		vm:      vm,
		ws:      ws,
		tx:      tx,
		signers: signers,
		now:     now,
		views:   views,
		invocation: &Invocation{
			Program:  ins.Program,
			Method:   method,
			Accounts: ins.Accounts,
			Data:     ins.Data,
		},
	}
}

type abort struct {
	code exitcode.ExitCode
	msg  string
}

// invoke runs the program and converts an abort into an exit code.
func (ic *invocationContext) invoke() (ret []byte, code exitcode.ExitCode, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			a, ok := r.(abort)
			if !ok {
				panic(r)
			}
			ret, code, errMsg = nil, a.code, a.msg
		}
		ic.invocation.Exitcode = code
		ic.invocation.Ret = ret
	}()

	program := ic.tx.Instruction.Program
	impl, ok := ic.vm.programs[program]
	if !ok {
		ic.Abortf(exitcode.SysErrInvalidReceiver, "no program deployed at %v", program)
	}
	if a := ic.ws.get(program); !a.Executable {
		ic.Abortf(exitcode.SysErrInvalidReceiver, "account %v is not executable", program)
	}

	out := impl.Invoke(ic, ic.tx.Instruction.Data)
	if isNil(out) {
		return nil, exitcode.Ok, ""
	}
	buf := new(bytes.Buffer)
	if err := out.MarshalCBOR(buf); err != nil {
		ic.Abortf(exitcode.SysErrorIllegalActor, "failed to marshal return value: %v", err)
	}
	return buf.Bytes(), exitcode.Ok, ""
}

func isNil(v runtime.CBORMarshaler) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

///// Implementation of the runtime API /////

func (ic *invocationContext) ProgramID() abi.Address {
	return ic.tx.Instruction.Program
}

func (ic *invocationContext) Now() abi.Timestamp {
	return ic.now
}

func (ic *invocationContext) Accounts() []*runtime.AccountInfo {
	return ic.views
}

func (ic *invocationContext) WriteAccountData(key abi.Address, data []byte) {
	meta := ic.requireMeta(key, exitcode.SysErrorIllegalArgument)
	if !meta.IsWritable {
		ic.Abortf(exitcode.SysErrorIllegalActor, "write to read-only account %v", key)
	}
	a := ic.ws.get(key)
	if a.Owner != ic.ProgramID() {
		ic.Abortf(exitcode.SysErrorIllegalActor, "write to account %v owned by %v", key, a.Owner)
	}
	if len(data) != len(a.Data) {
		ic.Abortf(exitcode.SysErrorIllegalArgument, "write of %d bytes to account %v of size %d", len(data), key, len(a.Data))
	}
	copy(a.Data, data)
	ic.refresh(key)
}

func (ic *invocationContext) CreateAccount(payer, key abi.Address, space uint64, owner abi.Address, seeds runtime.Seeds) exitcode.ExitCode {
	sub := ic.sub(builtin.SystemProgramID, "CreateAccount")
	code := ic.createAccount(payer, key, space, owner, seeds)
	sub.Exitcode = code
	return code
}

func (ic *invocationContext) createAccount(payer, key abi.Address, space uint64, owner abi.Address, seeds runtime.Seeds) exitcode.ExitCode {
	if !ic.authorized(payer, nil) {
		return exitcode.SysErrForbidden
	}
	if !ic.authorized(key, seeds) {
		return exitcode.SysErrForbidden
	}
	if m, ok := ic.meta(payer); !ok || !m.IsWritable {
		return exitcode.SysErrorIllegalArgument
	}
	if m, ok := ic.meta(key); !ok || !m.IsWritable {
		return exitcode.SysErrorIllegalArgument
	}
	target := ic.ws.get(key)
	if target.Owner != builtin.SystemProgramID || len(target.Data) != 0 || target.Executable {
		return exitcode.ErrIllegalState
	}
	rent := builtin.MinimumBalance(space)
	from := ic.ws.get(payer)
	if from.Lamports < rent {
		return exitcode.ErrInsufficientFunds
	}
	from.Lamports -= rent
	target.Lamports += rent
	target.Owner = owner
	target.Data = make([]byte, space)
	ic.refresh(payer)
	ic.refresh(key)
	return exitcode.Ok
}

func (ic *invocationContext) InitializeTokenAccount(key, mint, authority abi.Address) exitcode.ExitCode {
	sub := ic.sub(builtin.TokenProgramID, "InitializeAccount")
	code := ic.initializeTokenAccount(key, mint, authority)
	sub.Exitcode = code
	return code
}

func (ic *invocationContext) initializeTokenAccount(key, mint, authority abi.Address) exitcode.ExitCode {
	if m, ok := ic.meta(key); !ok || !m.IsWritable {
		return exitcode.SysErrorIllegalArgument
	}
	target := ic.ws.get(key)
	if target.Owner != builtin.TokenProgramID || len(target.Data) != token.AccountSize {
		return exitcode.ErrIllegalArgument
	}
	existing, err := token.UnpackAccount(target.Data)
	if err != nil {
		return exitcode.ErrSerialization
	}
	mintAcct := ic.ws.get(mint)
	if mintAcct.Owner != builtin.TokenProgramID {
		return exitcode.ErrIllegalArgument
	}
	m, err := token.UnpackMint(mintAcct.Data)
	if err != nil {
		return exitcode.ErrSerialization
	}
	acct, err := token.InitializeAccount(existing, m, mint, authority)
	if err != nil {
		return tokenExitCode(err)
	}
	copy(target.Data, acct.Bytes())
	ic.refresh(key)
	return exitcode.Ok
}

func (ic *invocationContext) Transfer(source, destination, authority abi.Address, amount abi.TokenAmount, seeds runtime.Seeds) exitcode.ExitCode {
	sub := ic.sub(builtin.TokenProgramID, "Transfer")
	code := ic.transfer(source, destination, authority, amount, seeds)
	sub.Exitcode = code
	return code
}

func (ic *invocationContext) transfer(source, destination, authority abi.Address, amount abi.TokenAmount, seeds runtime.Seeds) exitcode.ExitCode {
	if !ic.authorized(authority, seeds) {
		return exitcode.SysErrForbidden
	}
	for _, key := range []abi.Address{source, destination} {
		if m, ok := ic.meta(key); !ok || !m.IsWritable {
			return exitcode.SysErrorIllegalArgument
		}
	}
	src, dst := ic.ws.get(source), ic.ws.get(destination)
	if src.Owner != builtin.TokenProgramID || dst.Owner != builtin.TokenProgramID {
		return exitcode.ErrIllegalArgument
	}
	srcAcct, err := token.UnpackAccount(src.Data)
	if err != nil {
		return exitcode.ErrSerialization
	}
	dstAcct, err := token.UnpackAccount(dst.Data)
	if err != nil {
		return exitcode.ErrSerialization
	}
	if source == destination {
		// A self-transfer only needs the checks; balances are unchanged.
		if err := token.Transfer(srcAcct, dstAcct, authority, amount); err != nil {
			return tokenExitCode(err)
		}
		return exitcode.Ok
	}
	if err := token.Transfer(srcAcct, dstAcct, authority, amount); err != nil {
		return tokenExitCode(err)
	}
	copy(src.Data, srcAcct.Bytes())
	copy(dst.Data, dstAcct.Bytes())
	ic.refresh(source)
	ic.refresh(destination)
	return exitcode.Ok
}

func (ic *invocationContext) Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{}) {
	panic(abort{errExitCode, fmt.Sprintf(msg, args...)})
}

func (ic *invocationContext) Log(level rtt.LogLevel, msg string, args ...interface{}) {
	program := ic.ProgramID()
	if !builtin.Enabled(program, level, rtt.INFO) {
		return
	}
	line := fmt.Sprintf(msg, args...)
	ic.logs = append(ic.logs, line)
	log.Debugw("program log", "program", program, "level", level, "msg", line)
}

func (ic *invocationContext) StartSpan(name string) runtime.TraceSpan {
	return &span{program: ic.ProgramID(), name: name, start: time.Now()}
}

type span struct {
	program abi.Address
	name    string
	start   time.Time
}

func (s *span) End() {
	log.Debugw("span", "program", s.program, "name", s.name, "elapsed", time.Since(s.start))
}

///// Helpers /////

// authorized reports whether key signed the transaction, or is derived from the executing program by seeds.
func (ic *invocationContext) authorized(key abi.Address, seeds runtime.Seeds) bool {
	if m, ok := ic.meta(key); ok && m.IsSigner && ic.signers[key] {
		return true
	}
	if seeds == nil {
		return false
	}
	derived, err := abi.CreateProgramAddress(seeds, ic.ProgramID())
	return err == nil && derived == key
}

func (ic *invocationContext) meta(key abi.Address) (AccountMeta, bool) {
	for _, m := range ic.tx.Instruction.Accounts {
		if m.Key == key {
			return m, true
		}
	}
	return AccountMeta{}, false
}

func (ic *invocationContext) requireMeta(key abi.Address, code exitcode.ExitCode) AccountMeta {
	m, ok := ic.meta(key)
	if !ok {
		ic.Abortf(code, "account %v not passed to the program", key)
	}
	return m
}

// refresh re-reads every view of key from the working set.
func (ic *invocationContext) refresh(key abi.Address) {
	a := ic.ws.get(key)
	for _, v := range ic.views {
		if v.Key == key {
			v.Owner = a.Owner
			v.Lamports = a.Lamports
			v.Data = bytes.Clone(a.Data)
		}
	}
}

func (ic *invocationContext) sub(program abi.Address, method string) *Invocation {
	inv := &Invocation{Program: program, Method: method}
	ic.invocation.SubInvocations = append(ic.invocation.SubInvocations, inv)
	return inv
}

func tokenExitCode(err error) exitcode.ExitCode {
	if te, ok := err.(*token.Error); ok {
		return te.Code
	}
	return exitcode.ErrIllegalState
}
