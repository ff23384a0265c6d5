package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/support/vm"
)

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]string{"--state", "x.json", "--listen", ":9000", "--wallclock", "--save-interval", "1m"})
	require.NoError(t, err)
	assert.Equal(t, "x.json", cfg.StatePath)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.True(t, cfg.WallClock)
	assert.Equal(t, time.Minute, cfg.SaveInterval)
	assert.Equal(t, "", cfg.PostgresDSN)

	_, err = parseConfig([]string{"--save-interval", "0s"})
	assert.Error(t, err)
	_, err = parseConfig([]string{"--nope"})
	assert.Error(t, err)
}

func TestDaemon(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	_, err := newDaemon(ctx, &Config{StatePath: path, SaveInterval: time.Second})
	require.Error(t, err, "missing snapshot")

	seed := vm.NewVMWithPrograms(ctx, t, 1_700_000_000)
	vm.CreateAccounts(t, seed, 1, 1, vm.LamportsPerSOL)
	require.NoError(t, seed.SaveSnapshot(path))

	d, err := newDaemon(ctx, &Config{StatePath: path, SaveInterval: time.Second})
	require.NoError(t, err)
	assert.Equal(t, seed.StateRoot(), d.v.StateRoot())

	resp, err := d.app.Test(httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	d.syncClock(time.Unix(1_600_000_000, 0))
	assert.Equal(t, abi.Timestamp(1_700_000_000), d.v.Now(), "clock never moves back")
	d.syncClock(time.Unix(1_800_000_000, 0))
	assert.Equal(t, abi.Timestamp(1_800_000_000), d.v.Now())

	require.NoError(t, d.save())
	reloaded := vm.NewVM(ctx, vm.VestingPrograms())
	require.NoError(t, reloaded.LoadSnapshot(path))
	assert.Equal(t, abi.Timestamp(1_800_000_000), reloaded.Now())
	assert.Equal(t, d.v.StateRoot(), reloaded.StateRoot())
}
