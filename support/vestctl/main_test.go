package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/filecoin-project/go-bitfield"
	rlepluslazy "github.com/filecoin-project/go-bitfield/rle"
	"github.com/iotaledger/hive.go/core/ioutils"
	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	"github.com/ondrix/vesting-actors/support/vm"
)

type cliHarness struct {
	t     *testing.T
	dir   string
	state string
	keys  string
}

func newCLIHarness(t *testing.T) *cliHarness {
	dir := t.TempDir()
	return &cliHarness{t: t, dir: dir, state: filepath.Join(dir, "ledger.json"), keys: filepath.Join(dir, "keys")}
}

func (h *cliHarness) run(args ...string) (string, error) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	full := append([]string{"vestctl", "--state", h.state, "--keys", h.keys}, args...)
	err := app.Run(full)
	return out.String(), err
}

func (h *cliHarness) ok(args ...string) string {
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func lineWith(out, prefix string) string {
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(l, prefix))
		}
	}
	return ""
}

func TestLifecycle(t *testing.T) {
	h := newCLIHarness(t)

	creator := strings.TrimSpace(h.ok("keygen", "creator"))
	funder := strings.TrimSpace(h.ok("keygen", "funder"))
	h.ok("keygen", "mint")
	h.ok("keygen", "alice")
	h.ok("keygen", "bob")
	assert.Equal(t, creator, strings.TrimSpace(h.ok("address", "creator")))

	_, err := h.run("keygen", "creator")
	assert.Error(t, err)

	genesis := filepath.Join(h.dir, "genesis.json")
	require.NoError(t, ioutils.WriteJSONToFile(genesis, map[string]interface{}{
		"now": 1_700_000_000,
		"wallets": []map[string]interface{}{
			{"address": creator, "lamports": 10 * vm.LamportsPerSOL},
			{"address": funder, "lamports": 10 * vm.LamportsPerSOL},
		},
	}, 0o600))
	h.ok("genesis", genesis)
	_, err = h.run("genesis", genesis)
	assert.Error(t, err, "existing snapshot is kept")

	h.ok("mint", "create", "--mint", "mint", "--authority", "creator")
	h.ok("mint", "to", "--mint", "mint", "--owner", "funder", "--amount", "1000000")
	h.ok("mint", "to", "--mint", "mint", "--owner", "alice", "--amount", "0")
	h.ok("mint", "to", "--mint", "mint", "--owner", "bob", "--amount", "0")

	out := h.ok("create", "--creator", "creator", "--mint", "mint",
		"--recipient", "alice:6000", "--recipient", "bob:4000",
		"--cliff", "5m", "--vesting", "20m", "--tge", "1000", "--nonce", "3")
	record := lineWith(out, "record ")
	require.NotEmpty(t, record)
	assert.Contains(t, h.ok("derive", "--creator", "creator", "--nonce", "3"), record)

	h.ok("fund", "--funder", "funder", "--record", record, "--amount", "1000000")

	out = h.ok("distribute", "--creator", "creator", "--record", record)
	assert.Contains(t, out, "distributed 100,000")

	_, err = h.run("distribute", "--creator", "creator", "--record", record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distribution cooldown, state-precondition")

	h.ok("clock", "advance", "750")
	out = h.ok("show", record)
	assert.Contains(t, out, "claimable 270,000")
	out = h.ok("show", "--at", "1h", record)
	assert.Contains(t, out, "claimable 540,000")

	h.ok("distribute", "--creator", "creator", "--record", record)
	assert.Contains(t, h.ok("balance", "--mint", "mint", "alice"), "330,000")

	v := vm.NewVM(context.Background(), vm.VestingPrograms())
	require.NoError(t, v.LoadSnapshot(h.state))
	addr, err := abi.ParseAddress(record)
	require.NoError(t, err)
	st, err := v.GetVesting(addr)
	require.NoError(t, err)
	_, msgs := vesting.CheckStateInvariants(st, v.Now())
	assert.True(t, msgs.IsEmpty(), "%v", msgs.Messages())

	out = h.ok("decode", "record", hex.EncodeToString(st.Bytes()))
	assert.Contains(t, out, `"TotalAmount": 1000000`)
}

func TestFlagRanges(t *testing.T) {
	h := newCLIHarness(t)
	creator := strings.TrimSpace(h.ok("keygen", "creator"))
	h.ok("keygen", "mint")
	h.ok("keygen", "alice")

	genesis := filepath.Join(h.dir, "genesis.json")
	require.NoError(t, ioutils.WriteJSONToFile(genesis, map[string]interface{}{
		"now":     1_700_000_000,
		"wallets": []map[string]interface{}{{"address": creator, "lamports": 10 * vm.LamportsPerSOL}},
	}, 0o600))
	h.ok("genesis", genesis)

	t.Run("decimals above 255", func(t *testing.T) {
		_, err := h.run("mint", "create", "--mint", "mint", "--authority", "creator", "--decimals", "256")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decimals 256 out of range")
	})

	h.ok("mint", "create", "--mint", "mint", "--authority", "creator")
	before := vm.NewVM(context.Background(), vm.VestingPrograms())
	require.NoError(t, before.LoadSnapshot(h.state))

	t.Run("tge does not wrap", func(t *testing.T) {
		_, err := h.run("create", "--creator", "creator", "--mint", "mint",
			"--recipient", "alice:10000", "--vesting", "1200", "--tge", "65536")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tge 65536 out of range")
	})

	t.Run("tge above the basis point total is refused by the program", func(t *testing.T) {
		_, err := h.run("create", "--creator", "creator", "--mint", "mint",
			"--recipient", "alice:10000", "--vesting", "1200", "--tge", "10001")
		require.Error(t, err)
		assert.Contains(t, err.Error(), vesting.ErrorName(vesting.ErrInvalidBasisPoints))
	})

	t.Run("sub-second durations", func(t *testing.T) {
		_, err := h.run("create", "--creator", "creator", "--mint", "mint",
			"--recipient", "alice:10000", "--vesting", "20m", "--cliff", "90ms")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a whole number of seconds")

		_, err = h.run("create", "--creator", "creator", "--mint", "mint",
			"--recipient", "alice:10000", "--vesting", "1.5s")
		assert.Error(t, err)
	})

	after := vm.NewVM(context.Background(), vm.VestingPrograms())
	require.NoError(t, after.LoadSnapshot(h.state))
	assert.Equal(t, before.StateRoot(), after.StateRoot())
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("300")
	require.NoError(t, err)
	assert.Equal(t, abi.Duration(300), d)

	d, err = parseDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, abi.Duration(5400), d)

	_, err = parseDuration("90ms")
	assert.Error(t, err)
	_, err = parseDuration("soon")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	h := newCLIHarness(t)

	t.Run("bitfield", func(t *testing.T) {
		it, err := bitfield.NewFromSet([]uint64{0, 2, 9}).RunIterator()
		require.NoError(t, err)
		raw, err := rlepluslazy.EncodeRuns(it, nil)
		require.NoError(t, err)
		out := h.ok("decode", "bf", hex.EncodeToString(raw))
		assert.Equal(t, "0\n2\n9\n", out)
	})

	t.Run("distribute return", func(t *testing.T) {
		ret := &vesting.DistributeReturn{
			Payouts:   []vesting.Payout{{Slot: 1, Wallet: abi.Address{7}, Amount: 1234}},
			PaidSlots: bitfield.NewFromSet([]uint64{1}),
			Total:     1234,
			Timestamp: 1_700_000_000,
		}
		var buf bytes.Buffer
		require.NoError(t, ret.MarshalCBOR(&buf))
		encoded, err := multibase.Encode(multibase.Base58BTC, buf.Bytes())
		require.NoError(t, err)
		out := h.ok("decode", "return", encoded)
		assert.Contains(t, out, "slot 1 "+abi.Address{7}.String()+" +1,234")
		assert.Contains(t, out, "distributed 1,234 at 2023-11-14T22:13:20Z")
	})

	t.Run("instruction", func(t *testing.T) {
		data, err := (&vesting.FundParams{Amount: 42}).Bytes()
		require.NoError(t, err)
		out := h.ok("decode", "instruction", hex.EncodeToString(data))
		assert.Contains(t, out, `"Amount": 42`)

		_, err = h.run("decode", "instruction", "ff")
		assert.Error(t, err)
	})

	t.Run("not hex or multibase", func(t *testing.T) {
		_, err := h.run("decode", "record", "!!!")
		assert.Error(t, err)
	})
}
