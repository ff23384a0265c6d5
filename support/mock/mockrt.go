package mock

import (
	"bytes"
	"fmt"
	"reflect"
	"runtime/debug"
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	rtt "github.com/filecoin-project/go-state-types/rt"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

// A mock runtime for unit testing of programs in isolation.
// The mock allows the runtime context to be set directly as observable by a program, applies
// account data writes, and mocks out calls into other programs.
type Runtime struct {
	// Execution context
	program  abi.Address
	now      abi.Timestamp
	accounts []*runtime.AccountInfo

	// VM implementation
	inCall    bool
	logs      []string
	spans     []string
	openSpans int

	// Expectations
	t                             testing.TB
	expectCreateAccounts          []*expectCreateAccount
	expectInitializeTokenAccounts []*expectInitializeTokenAccount
	expectTransfers               []*expectTransfer
}

type expectCreateAccount struct {
	payer   abi.Address
	account abi.Address
	space   uint64
	owner   abi.Address

	exitCode exitcode.ExitCode
}

type expectInitializeTokenAccount struct {
	account   abi.Address
	mint      abi.Address
	authority abi.Address

	exitCode exitcode.ExitCode
}

type expectTransfer struct {
	source      abi.Address
	destination abi.Address
	authority   abi.Address
	amount      abi.TokenAmount

	exitCode exitcode.ExitCode
}

func (e *expectTransfer) Equal(source, destination, authority abi.Address, amount abi.TokenAmount) bool {
	return e.source == source && e.destination == destination && e.authority == authority && e.amount == amount
}

func (e *expectTransfer) String() string {
	return fmt.Sprintf("source: %v destination: %v authority: %v amount: %d exitCode: %v",
		e.source, e.destination, e.authority, e.amount, e.exitCode)
}

var _ runtime.Runtime = &Runtime{}
var typeOfRuntimeInterface = reflect.TypeOf((*runtime.Runtime)(nil)).Elem()
var typeOfCborMarshaler = reflect.TypeOf((*runtime.CBORMarshaler)(nil)).Elem()

///// Implementation of the runtime API /////

func (rt *Runtime) ProgramID() abi.Address {
	rt.requireInCall()
	return rt.program
}

func (rt *Runtime) Now() abi.Timestamp {
	rt.requireInCall()
	return rt.now
}

func (rt *Runtime) Accounts() []*runtime.AccountInfo {
	rt.requireInCall()
	return rt.accounts
}

func (rt *Runtime) WriteAccountData(key abi.Address, data []byte) {
	rt.requireInCall()
	account, ok := builtin.FindAccount(rt.accounts, key)
	if !ok {
		rt.Abortf(exitcode.SysErrorIllegalArgument, "write to account %v not passed to the program", key)
	}
	if account.Owner != rt.program {
		rt.Abortf(exitcode.SysErrorIllegalActor, "write to account %v owned by %v", key, account.Owner)
	}
	if !account.IsWritable {
		rt.Abortf(exitcode.SysErrorIllegalActor, "write to read-only account %v", key)
	}
	if len(data) != len(account.Data) {
		rt.Abortf(exitcode.SysErrorIllegalArgument, "write of %d bytes to account %v of size %d", len(data), key, len(account.Data))
	}
	copy(account.Data, data)
}

func (rt *Runtime) CreateAccount(payer, key abi.Address, space uint64, owner abi.Address, seeds runtime.Seeds) exitcode.ExitCode {
	rt.requireInCall()
	if len(rt.expectCreateAccounts) == 0 {
		rt.failTestNow("unexpected create account %v owner %v space %d", key, owner, space)
	}
	expected := rt.expectCreateAccounts[0]
	if expected.payer != payer || expected.account != key || expected.space != space || expected.owner != owner {
		rt.failTest("create account does not match expectation.\n"+
			"Call     - payer: %v account: %v space: %d owner: %v\n"+
			"Expected - payer: %v account: %v space: %d owner: %v",
			payer, key, space, owner, expected.payer, expected.account, expected.space, expected.owner)
	}
	rt.requireSeeds(key, seeds)
	defer func() {
		rt.expectCreateAccounts = rt.expectCreateAccounts[1:]
	}()

	if expected.exitCode.IsSuccess() {
		if account, ok := builtin.FindAccount(rt.accounts, key); ok {
			account.Owner = owner
			account.Data = make([]byte, space)
			account.Lamports += builtin.MinimumBalance(space)
		}
	}
	return expected.exitCode
}

func (rt *Runtime) InitializeTokenAccount(key, mint, authority abi.Address) exitcode.ExitCode {
	rt.requireInCall()
	if len(rt.expectInitializeTokenAccounts) == 0 {
		rt.failTestNow("unexpected initialize token account %v mint %v authority %v", key, mint, authority)
	}
	expected := rt.expectInitializeTokenAccounts[0]
	if expected.account != key || expected.mint != mint || expected.authority != authority {
		rt.failTest("initialize token account does not match expectation.\n"+
			"Call     - account: %v mint: %v authority: %v\n"+
			"Expected - account: %v mint: %v authority: %v",
			key, mint, authority, expected.account, expected.mint, expected.authority)
	}
	defer func() {
		rt.expectInitializeTokenAccounts = rt.expectInitializeTokenAccounts[1:]
	}()

	if expected.exitCode.IsSuccess() {
		if account, ok := builtin.FindAccount(rt.accounts, key); ok && len(account.Data) == token.AccountSize {
			acct := token.Account{Mint: mint, Owner: authority, State: token.Initialized}
			copy(account.Data, acct.Bytes())
		}
	}
	return expected.exitCode
}

func (rt *Runtime) Transfer(source, destination, authority abi.Address, amount abi.TokenAmount, seeds runtime.Seeds) exitcode.ExitCode {
	rt.requireInCall()
	if len(rt.expectTransfers) == 0 {
		rt.failTestNow("unexpected transfer of %d from %v to %v", amount, source, destination)
	}
	expected := rt.expectTransfers[0]
	if !expected.Equal(source, destination, authority, amount) {
		rt.failTest("transfer does not match expectation.\n"+
			"Call     - source: %v destination: %v authority: %v amount: %d\n"+
			"Expected - %v", source, destination, authority, amount, expected)
	}
	if seeds != nil {
		rt.requireSeeds(authority, seeds)
	}
	defer func() {
		rt.expectTransfers = rt.expectTransfers[1:]
	}()

	if expected.exitCode.IsSuccess() {
		rt.applyTransfer(source, destination, amount)
	}
	return expected.exitCode
}

func (rt *Runtime) Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{}) {
	rt.requireInCall()
	rt.t.Logf("Mock Runtime Abort ExitCode: %v Reason: %s", errExitCode, fmt.Sprintf(msg, args...))
	panic(abort{errExitCode, fmt.Sprintf(msg, args...)})
}

func (rt *Runtime) Log(level rtt.LogLevel, msg string, args ...interface{}) {
	rt.requireInCall()
	rt.logs = append(rt.logs, fmt.Sprintf(msg, args...))
}

func (rt *Runtime) StartSpan(name string) runtime.TraceSpan {
	rt.requireInCall()
	rt.spans = append(rt.spans, name)
	rt.openSpans++
	return &TraceSpan{rt: rt}
}

func (rt *Runtime) requireSeeds(signer abi.Address, seeds runtime.Seeds) {
	derived, err := abi.CreateProgramAddress(seeds, rt.program)
	if err != nil || derived != signer {
		rt.Abortf(exitcode.SysErrForbidden, "seeds do not sign for %v", signer)
	}
}

func (rt *Runtime) applyTransfer(source, destination abi.Address, amount abi.TokenAmount) {
	src, ok := builtin.FindAccount(rt.accounts, source)
	if !ok {
		return
	}
	dst, ok := builtin.FindAccount(rt.accounts, destination)
	if !ok {
		return
	}
	srcAcct, err := token.UnpackAccount(src.Data)
	if err != nil {
		return
	}
	dstAcct, err := token.UnpackAccount(dst.Data)
	if err != nil {
		return
	}
	if err := token.Transfer(srcAcct, dstAcct, srcAcct.Owner, amount); err != nil {
		rt.failTestNow("expected transfer cannot be applied: %v", err)
	}
	copy(src.Data, srcAcct.Bytes())
	copy(dst.Data, dstAcct.Bytes())
}

///// Trace span implementation /////

type TraceSpan struct {
	rt    *Runtime
	ended bool
}

func (t *TraceSpan) End() {
	if t.ended {
		t.rt.failTest("span ended twice")
		return
	}
	t.ended = true
	t.rt.openSpans--
}

type abort struct {
	code exitcode.ExitCode
	msg  string
}

func (a abort) String() string {
	return fmt.Sprintf("abort(%v): %s", a.code, a.msg)
}

///// Inspection facilities /////

func (rt *Runtime) GetProgramID() abi.Address {
	return rt.program
}

func (rt *Runtime) GetNow() abi.Timestamp {
	return rt.now
}

// GetAccount returns the account with the given key. The test fails if it is not present.
func (rt *Runtime) GetAccount(key abi.Address) *runtime.AccountInfo {
	account, ok := builtin.FindAccount(rt.accounts, key)
	if !ok {
		rt.failTestNow("account %v not present", key)
	}
	return account
}

// GetTokenAccount decodes the token account with the given key.
func (rt *Runtime) GetTokenAccount(key abi.Address) *token.Account {
	acct, err := token.UnpackAccount(rt.GetAccount(key).Data)
	if err != nil {
		rt.failTestNow("failed to decode token account %v: %v", key, err)
	}
	return acct
}

// Spans returns the names of the spans started since the last reset.
func (rt *Runtime) Spans() []string {
	return rt.spans
}

// Logs returns the lines logged by the program since the last reset.
func (rt *Runtime) Logs() []string {
	return rt.logs
}

///// Mocking facilities /////

func (rt *Runtime) SetNow(now abi.Timestamp) {
	rt.now = now
}

// SetAccounts replaces the account list passed to the next call.
func (rt *Runtime) SetAccounts(accounts ...*runtime.AccountInfo) {
	rt.accounts = accounts
}

func (rt *Runtime) ExpectCreateAccount(payer, account abi.Address, space uint64, owner abi.Address, exitCode exitcode.ExitCode) {
	rt.expectCreateAccounts = append(rt.expectCreateAccounts, &expectCreateAccount{
		payer:    payer,
		account:  account,
		space:    space,
		owner:    owner,
		exitCode: exitCode,
	})
}

func (rt *Runtime) ExpectInitializeTokenAccount(account, mint, authority abi.Address, exitCode exitcode.ExitCode) {
	rt.expectInitializeTokenAccounts = append(rt.expectInitializeTokenAccounts, &expectInitializeTokenAccount{
		account:   account,
		mint:      mint,
		authority: authority,
		exitCode:  exitCode,
	})
}

func (rt *Runtime) ExpectTransfer(source, destination, authority abi.Address, amount abi.TokenAmount, exitCode exitcode.ExitCode) {
	// append to the transfer queue
	rt.expectTransfers = append(rt.expectTransfers, &expectTransfer{
		source:      source,
		destination: destination,
		authority:   authority,
		amount:      amount,
		exitCode:    exitCode,
	})
}

// Verifies that expected calls were received, and resets all expectations.
func (rt *Runtime) Verify() {
	if len(rt.expectCreateAccounts) > 0 {
		rt.failTest("expected accounts to be created, uncreated accounts %v", rt.expectCreateAccounts)
	}
	if len(rt.expectInitializeTokenAccounts) > 0 {
		rt.failTest("expected token accounts to be initialized, uninitialized %v", rt.expectInitializeTokenAccounts)
	}
	if len(rt.expectTransfers) > 0 {
		rt.failTest("expected all transfers to be made, missing transfers %v", rt.expectTransfers)
	}
	if rt.openSpans != 0 {
		rt.failTest("%d spans were not ended", rt.openSpans)
	}

	rt.Reset()
}

// Resets expectations
func (rt *Runtime) Reset() {
	rt.expectCreateAccounts = nil
	rt.expectInitializeTokenAccounts = nil
	rt.expectTransfers = nil
	rt.logs = nil
	rt.spans = nil
	rt.openSpans = 0
}

// Calls f() expecting it to invoke Runtime.Abortf() with a specified exit code.
func (rt *Runtime) ExpectAbort(expected exitcode.ExitCode, f func()) {
	prevAccounts := snapshotAccounts(rt.accounts)

	defer func() {
		r := recover()
		if r == nil {
			rt.failTest("expected abort with code %v but call succeeded", expected)
			return
		}
		a, ok := r.(abort)
		if !ok {
			panic(r)
		}
		if a.code != expected {
			rt.failTest("abort expected code %v, got %v %s", expected, a.code, a.msg)
		}
		// Roll back account changes.
		restoreAccounts(rt.accounts, prevAccounts)
	}()
	f()
}

// Calls f() expecting it to invoke Runtime.Abortf() with a code in the given failure class.
func (rt *Runtime) ExpectAbortMatching(match func(exitcode.ExitCode) bool, f func()) {
	prevAccounts := snapshotAccounts(rt.accounts)

	defer func() {
		r := recover()
		if r == nil {
			rt.failTest("expected abort but call succeeded")
			return
		}
		a, ok := r.(abort)
		if !ok {
			panic(r)
		}
		if !match(a.code) {
			rt.failTest("abort code %v did not match: %s", a.code, a.msg)
		}
		restoreAccounts(rt.accounts, prevAccounts)
	}()
	f()
}

func (rt *Runtime) Call(method interface{}, params interface{}) interface{} {
	meth := reflect.ValueOf(method)
	rt.verifyExportedMethodType(meth)

	// There's no panic recovery here. If an abort is expected, this call will be inside an ExpectAbort block.
	// If not expected, the panic will escape and cause the test to fail.

	rt.inCall = true
	defer func() { rt.inCall = false }()
	arg := reflect.ValueOf(params)
	if params == nil {
		arg = reflect.Zero(meth.Type().In(1))
	}
	ret := meth.Call([]reflect.Value{reflect.ValueOf(rt), arg})
	return ret[0].Interface()
}

// Invoke runs a program entry point on raw instruction data.
func (rt *Runtime) Invoke(program runtime.Program, data []byte) runtime.CBORMarshaler {
	rt.inCall = true
	defer func() { rt.inCall = false }()
	return program.Invoke(rt, data)
}

func (rt *Runtime) verifyExportedMethodType(meth reflect.Value) {
	t := meth.Type()
	rt.require(t.Kind() == reflect.Func, "%v is not a function", meth)
	rt.require(t.NumIn() == 2, "exported method %v must have two parameters, got %v", meth, t.NumIn())
	rt.require(t.In(0) == typeOfRuntimeInterface, "exported method first parameter must be runtime, got %v", t.In(0))
	rt.require(t.In(1).Kind() == reflect.Ptr, "exported method second parameter must be pointer to params, got %v", t.In(1))
	rt.require(t.NumOut() == 1, "exported method must return a single value")
	rt.require(t.Out(0).Implements(typeOfCborMarshaler), "exported method must return CBOR-marshalable value")
}

func (rt *Runtime) requireInCall() {
	rt.require(rt.inCall, "invalid runtime invocation outside of method call")
}

func (rt *Runtime) require(predicate bool, msg string, args ...interface{}) {
	if !predicate {
		rt.failTestNow(msg, args...)
	}
}

func (rt *Runtime) failTest(msg string, args ...interface{}) {
	rt.t.Logf(msg, args...)
	rt.t.Logf("%s", debug.Stack())
	rt.t.Fail()
}

func (rt *Runtime) failTestNow(msg string, args ...interface{}) {
	rt.t.Logf(msg, args...)
	rt.t.Logf("%s", debug.Stack())
	rt.t.FailNow()
}

type accountSnapshot struct {
	owner    abi.Address
	lamports uint64
	data     []byte
}

func snapshotAccounts(accounts []*runtime.AccountInfo) []accountSnapshot {
	out := make([]accountSnapshot, len(accounts))
	for i, a := range accounts {
		out[i] = accountSnapshot{owner: a.Owner, lamports: a.Lamports, data: bytes.Clone(a.Data)}
	}
	return out
}

func restoreAccounts(accounts []*runtime.AccountInfo, snapshot []accountSnapshot) {
	for i, a := range accounts {
		if i >= len(snapshot) {
			break
		}
		a.Owner = snapshot[i].owner
		a.Lamports = snapshot[i].lamports
		a.Data = snapshot[i].data
	}
}
