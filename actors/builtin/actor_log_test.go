package builtin

import (
	"testing"

	rtt "github.com/filecoin-project/go-state-types/rt"
	"github.com/stretchr/testify/assert"

	"github.com/ondrix/vesting-actors/actors/abi"
)

func TestProgramLogLevel(t *testing.T) {
	program := abi.Address{7}
	other := abi.Address{8}
	defer ResetProgramsLogLevel()

	t.Run("log with default", func(t *testing.T) {
		assert.Equal(t, rtt.DEBUG, GetProgramLogLevel(program, rtt.DEBUG))
		assert.Equal(t, rtt.INFO, GetProgramLogLevel(program, rtt.INFO))
		assert.Equal(t, rtt.WARN, GetProgramLogLevel(program, rtt.WARN))
		assert.Equal(t, rtt.ERROR, GetProgramLogLevel(program, rtt.ERROR))
	})

	t.Run("override wins over default", func(t *testing.T) {
		SetProgramsLogLevel(rtt.WARN, program)
		assert.Equal(t, rtt.WARN, GetProgramLogLevel(program, rtt.DEBUG))
		assert.Equal(t, rtt.WARN, GetProgramLogLevel(program, rtt.ERROR))
		assert.Equal(t, rtt.INFO, GetProgramLogLevel(other, rtt.INFO))

		SetProgramsLogLevel(rtt.DEBUG, program, other)
		assert.Equal(t, rtt.DEBUG, GetProgramLogLevel(program, rtt.ERROR))
		assert.Equal(t, rtt.DEBUG, GetProgramLogLevel(other, rtt.ERROR))
	})

	t.Run("enabled compares against the effective level", func(t *testing.T) {
		ResetProgramsLogLevel()
		assert.True(t, Enabled(program, rtt.INFO, rtt.INFO))
		assert.False(t, Enabled(program, rtt.DEBUG, rtt.INFO))

		SetProgramsLogLevel(rtt.ERROR, program)
		assert.False(t, Enabled(program, rtt.WARN, rtt.DEBUG))
		assert.True(t, Enabled(program, rtt.ERROR, rtt.DEBUG))
	})
}
