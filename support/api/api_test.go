package api_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	"github.com/ondrix/vesting-actors/support/api"
	tutil "github.com/ondrix/vesting-actors/support/testing"
	"github.com/ondrix/vesting-actors/support/vm"
)

const start = abi.Timestamp(1_700_000_000)

type fixture struct {
	v          *vm.VM
	app        *fiber.App
	creatorKey ed25519.PrivateKey
	creator    abi.Address
	mint       abi.Address
	wallets    []abi.Address
	record     abi.Address
}

func newFixture(t *testing.T) *fixture {
	v := vm.NewVMWithPrograms(context.Background(), t, start)
	keys := vm.CreateAccounts(t, v, 10, 2, 10*vm.LamportsPerSOL)
	f := &fixture{
		v:          v,
		app:        api.NewApp(v),
		creatorKey: keys[0],
		creator:    vm.KeyAddress(t, keys[0]),
		mint:       tutil.NewAddr(t, 20),
		wallets:    tutil.NewAddrs(t, 30, 2),
	}
	require.NoError(t, v.CreateMint(f.mint, 6, f.creator))
	funder := vm.KeyAddress(t, keys[1])
	source, err := v.MintToOwner(f.mint, funder, 1_000_000)
	require.NoError(t, err)
	for _, w := range f.wallets {
		ata, _, err := token.AssociatedAddress(w, f.mint)
		require.NoError(t, err)
		require.NoError(t, v.CreateTokenAccount(ata, f.mint, w))
	}

	ins, addrs, err := vm.CreateVestingInstruction(f.creator, f.mint, &vesting.CreateParams{
		Recipients: []vesting.RecipientShare{
			{Wallet: f.wallets[0], BasisPoints: 6000},
			{Wallet: f.wallets[1], BasisPoints: 4000},
		},
		CliffPeriod:    300,
		VestingPeriod:  1200,
		TGEBasisPoints: 1000,
		Nonce:          1,
	})
	require.NoError(t, err)
	vm.ApplyOk(t, v, ins, f.creatorKey)
	f.record = addrs.Record

	fund, err := vm.FundVestingInstruction(funder, source, f.record, 1_000_000)
	require.NoError(t, err)
	vm.ApplyOk(t, v, fund, keys[1])
	return f
}

func (f *fixture) get(t *testing.T, path string, out interface{}) int {
	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var out api.HealthResponse
	assert.Equal(t, http.StatusOK, f.get(t, "/v1/health", &out))
	assert.True(t, out.OK)
	assert.Equal(t, start, out.Now)
	assert.Equal(t, f.v.StateRoot().String(), out.StateRoot)
}

func TestGetVesting(t *testing.T) {
	f := newFixture(t)

	t.Run("preview at the ledger clock", func(t *testing.T) {
		var out api.VestingView
		require.Equal(t, http.StatusOK, f.get(t, "/v1/vestings/"+f.record.String(), &out))
		assert.Equal(t, f.creator, out.Creator)
		assert.True(t, out.Funded)
		assert.Equal(t, start, out.At)
		require.Len(t, out.Recipients, 2)
		assert.Equal(t, abi.TokenAmount(600_000), out.Recipients[0].Total)
		assert.Equal(t, abi.TokenAmount(60_000), out.Recipients[0].Claimable)
		assert.Equal(t, abi.TokenAmount(40_000), out.Recipients[1].Claimable)
	})

	t.Run("preview at a later time", func(t *testing.T) {
		var out api.VestingView
		require.Equal(t, http.StatusOK, f.get(t, "/v1/vestings/"+f.record.String()+"?at=1700000750", &out))
		assert.Equal(t, abi.TokenAmount(330_000), out.Recipients[0].Vested)
		assert.Equal(t, abi.TokenAmount(220_000), out.Recipients[1].Claimable)
	})

	t.Run("timestamp outside the ledger clock range", func(t *testing.T) {
		base := "/v1/vestings/" + f.record.String() + "?at="
		var out api.APIError
		assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, base+"9223372036854775808", &out))
		assert.Contains(t, out.Message, "at: ")
		assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, base+"18446744073709551615", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, base+"-5", nil))
		assert.Equal(t, http.StatusOK, f.get(t, base+"9223372036854775807", nil))
	})

	t.Run("unknown record", func(t *testing.T) {
		var out api.APIError
		assert.Equal(t, http.StatusNotFound, f.get(t, "/v1/vestings/"+f.wallets[0].String(), &out))
		assert.NotEmpty(t, out.Message)
	})

	t.Run("malformed address", func(t *testing.T) {
		assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, "/v1/vestings/0OIl", nil))
	})
}

func TestGetVestings(t *testing.T) {
	f := newFixture(t)

	var out api.VestingsResponse
	require.Equal(t, http.StatusOK, f.get(t, "/v1/vestings", &out))
	require.Len(t, out.Vestings, 1)
	assert.Equal(t, f.record, out.Vestings[0].Address)

	out = api.VestingsResponse{}
	require.Equal(t, http.StatusOK, f.get(t, "/v1/vestings?creator="+f.wallets[0].String(), &out))
	assert.Empty(t, out.Vestings)
}

func TestDerive(t *testing.T) {
	f := newFixture(t)

	var out api.DeriveResponse
	require.Equal(t, http.StatusOK, f.get(t, "/v1/derive?creator="+f.creator.String()+"&nonce=1", &out))
	assert.Equal(t, f.record, out.Record)
	addrs, err := vesting.DeriveAddresses(vesting.ProgramID, f.creator, 1)
	require.NoError(t, err)
	assert.Equal(t, addrs.Vault, out.Vault)
	assert.Equal(t, addrs.Authority, out.Authority)

	assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, "/v1/derive?nonce=1", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, "/v1/derive?creator="+f.creator.String()+"&nonce=x", nil))
}

func TestPostTransaction(t *testing.T) {
	f := newFixture(t)
	st, err := f.v.GetVesting(f.record)
	require.NoError(t, err)
	ins, err := vm.DistributeVestingInstruction(f.creator, f.record, st)
	require.NoError(t, err)
	tx, err := vm.NewTransaction(ins, f.creatorKey)
	require.NoError(t, err)
	raw, err := tx.Bytes()
	require.NoError(t, err)
	encoded, err := multibase.Encode(multibase.Base58BTC, raw)
	require.NoError(t, err)

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := f.app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"tx":"` + encoded + `"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result vm.MessageResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Ok(), result.Error)

	ata, _, err := token.AssociatedAddress(f.wallets[0], f.mint)
	require.NoError(t, err)
	var bal api.BalanceResponse
	require.Equal(t, http.StatusOK, f.get(t, "/v1/balances/"+ata.String(), &bal))
	assert.Equal(t, abi.TokenAmount(60_000), bal.Amount)

	// same clock, so the replay hits the cooldown
	resp = post(`{"tx":"` + encoded + `"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = vm.MessageResult{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, vesting.ErrDistributionCooldown, result.ExitCode)

	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"tx":"!!!"}`).StatusCode)
}
