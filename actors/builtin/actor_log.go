package builtin

import (
	"sync"

	rtt "github.com/filecoin-project/go-state-types/rt"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// ProgramLog holds the log level override for each program, keyed by program address.
type ProgramLog struct {
	sync.RWMutex
	Programs map[abi.Address]rtt.LogLevel
}

var programLogSingle *ProgramLog

func init() {
	programLogSingle = &ProgramLog{Programs: make(map[abi.Address]rtt.LogLevel)}
}

func SetProgramsLogLevel(logLevel rtt.LogLevel, programs ...abi.Address) {
	programLogSingle.Lock()
	defer programLogSingle.Unlock()

	for _, p := range programs {
		programLogSingle.Programs[p] = logLevel
	}
}

func GetProgramLogLevel(program abi.Address, defValue rtt.LogLevel) rtt.LogLevel {
	programLogSingle.RLock()
	defer programLogSingle.RUnlock()

	level, ok := programLogSingle.Programs[program]
	if ok {
		return level
	}

	return defValue
}

// ResetProgramsLogLevel drops every override.
func ResetProgramsLogLevel() {
	programLogSingle.Lock()
	defer programLogSingle.Unlock()

	programLogSingle.Programs = make(map[abi.Address]rtt.LogLevel)
}

// Enabled reports whether a line at `level` from `program` should be kept when the host's
// threshold defaults to `defValue`.
func Enabled(program abi.Address, level, defValue rtt.LogLevel) bool {
	return level >= GetProgramLogLevel(program, defValue)
}
