package mock

import (
	"testing"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

// Build for fluent initialization of a mock runtime.
type RuntimeBuilder struct {
	rt *Runtime
}

// Initializes a new builder with the address of the program under test.
func NewBuilder(program abi.Address) *RuntimeBuilder {
	m := &Runtime{
		program:  program,
		now:      0,
		accounts: nil,

		t:                             nil, // Initialized at Build()
		expectCreateAccounts:          nil,
		expectInitializeTokenAccounts: nil,
		expectTransfers:               nil,
	}
	return &RuntimeBuilder{m}
}

// Builds a new runtime object with the configured values.
func (b *RuntimeBuilder) Build(t testing.TB) *Runtime {
	cpy := *b.rt

	// Deep copy the mutable values.
	cpy.accounts = make([]*runtime.AccountInfo, len(b.rt.accounts))
	for i, a := range b.rt.accounts {
		dup := *a
		dup.Data = append([]byte(nil), a.Data...)
		cpy.accounts[i] = &dup
	}

	cpy.t = t
	return &cpy
}

func (b *RuntimeBuilder) WithNow(now abi.Timestamp) *RuntimeBuilder {
	b.rt.now = now
	return b
}

func (b *RuntimeBuilder) WithAccounts(accounts ...*runtime.AccountInfo) *RuntimeBuilder {
	b.rt.accounts = accounts
	return b
}
