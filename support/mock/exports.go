package mock

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type exporter interface {
	Exports() []interface{}
}

// CheckActorExports checks that every export of a program is an entry point the runtime can dispatch to.
// Gaps in the export table are allowed.
func CheckActorExports(t *testing.T, act exporter) {
	for i, m := range act.Exports() {
		if m == nil {
			continue
		}
		meth := reflect.ValueOf(m)
		typ := meth.Type()
		require.Equal(t, reflect.Func, typ.Kind(), "export %d is not a function", i)
		require.Equal(t, 2, typ.NumIn(), "export %d must take two parameters", i)
		require.Equal(t, typeOfRuntimeInterface, typ.In(0), "export %d must take the runtime first", i)
		require.Equal(t, reflect.Ptr, typ.In(1).Kind(), "export %d must take a pointer to its params", i)
		require.Equal(t, 1, typ.NumOut(), "export %d must return a single value", i)
		require.True(t, typ.Out(0).Implements(typeOfCborMarshaler), "export %d must return a CBOR marshaler", i)
	}
}
