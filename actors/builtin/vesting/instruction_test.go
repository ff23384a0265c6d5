package vesting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
)

func shares(bps ...abi.BasisPoints) []vesting.RecipientShare {
	out := make([]vesting.RecipientShare, len(bps))
	for i, bp := range bps {
		out[i] = vesting.RecipientShare{Wallet: abi.Address{byte(i + 1), 0xee}, BasisPoints: bp}
	}
	return out
}

func TestDecodeCreate(t *testing.T) {
	params := &vesting.CreateParams{
		Recipients:     shares(6000, 4000),
		CliffPeriod:    300,
		VestingPeriod:  1200,
		TGEBasisPoints: 1000,
		Nonce:          42,
	}

	t.Run("round trip", func(t *testing.T) {
		data, err := params.Bytes()
		require.NoError(t, err)
		require.Len(t, data, vesting.CreateInstructionSize(2))
		assert.Equal(t, 28+2*34, len(data))
		assert.Equal(t, byte(vesting.OpCreate), data[0])
		assert.Equal(t, byte(2), data[1])

		ins, err := vesting.DecodeInstruction(data)
		require.NoError(t, err)
		assert.Equal(t, vesting.OpCreate, ins.Op)
		assert.Equal(t, params, ins.Create)
		assert.Nil(t, ins.Fund)
	})

	t.Run("little endian fields", func(t *testing.T) {
		data, err := params.Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x2c, 0x01, 0, 0, 0, 0, 0, 0}, data[2:10], "cliff")
		assert.Equal(t, []byte{0xe8, 0x03}, data[18:20], "tge")
		assert.Equal(t, byte(42), data[20], "nonce")
	})

	t.Run("truncated", func(t *testing.T) {
		data, err := params.Bytes()
		require.NoError(t, err)
		_, err = vesting.DecodeInstruction(data[:len(data)-1])
		assert.Equal(t, vesting.ErrInvalidInstructionData, vesting.CodeOf(err, 0))
		_, err = vesting.DecodeInstruction(data[:10])
		assert.Equal(t, vesting.ErrInvalidInstructionData, vesting.CodeOf(err, 0))
	})

	t.Run("trailing bytes", func(t *testing.T) {
		data, err := params.Bytes()
		require.NoError(t, err)
		_, err = vesting.DecodeInstruction(append(data, 0))
		assert.Equal(t, vesting.ErrInvalidInstructionData, vesting.CodeOf(err, 0))
	})

	t.Run("recipient count out of range", func(t *testing.T) {
		for _, n := range []int{0, 11} {
			bps := make([]abi.BasisPoints, n)
			for i := range bps {
				bps[i] = 1
			}
			p := *params
			p.Recipients = shares(bps...)
			data, err := p.Bytes()
			require.NoError(t, err)
			_, err = vesting.DecodeInstruction(data)
			assert.Equal(t, vesting.ErrInvalidRecipientCount, vesting.CodeOf(err, 0), "count %d", n)
		}
	})

	t.Run("basis points must sum to total", func(t *testing.T) {
		p := *params
		p.Recipients = shares(6000, 3999)
		data, err := p.Bytes()
		require.NoError(t, err)
		_, err = vesting.DecodeInstruction(data)
		assert.Equal(t, vesting.ErrInvalidTotalBasisPoints, vesting.CodeOf(err, 0))
	})
}

func TestDecodeFundAndDistribute(t *testing.T) {
	t.Run("fund round trip", func(t *testing.T) {
		data, err := (&vesting.FundParams{Amount: 1_000_000}).Bytes()
		require.NoError(t, err)
		require.Len(t, data, 9)
		ins, err := vesting.DecodeInstruction(data)
		require.NoError(t, err)
		assert.Equal(t, vesting.OpFund, ins.Op)
		assert.Equal(t, abi.TokenAmount(1_000_000), ins.Fund.Amount)
	})

	t.Run("fund wrong length", func(t *testing.T) {
		_, err := vesting.DecodeInstruction([]byte{0x01, 1, 2, 3})
		assert.Equal(t, vesting.ErrInvalidInstructionData, vesting.CodeOf(err, 0))
		_, err = vesting.DecodeInstruction(make([]byte, 10))
		assert.Error(t, err)
	})

	t.Run("distribute", func(t *testing.T) {
		ins, err := vesting.DecodeInstruction([]byte{0x02})
		require.NoError(t, err)
		assert.Equal(t, vesting.OpDistribute, ins.Op)
		assert.NotNil(t, ins.Distribute)

		_, err = vesting.DecodeInstruction([]byte{0x02, 0x00})
		assert.Equal(t, vesting.ErrInvalidInstructionData, vesting.CodeOf(err, 0))
	})

	t.Run("unknown opcode and empty input", func(t *testing.T) {
		_, err := vesting.DecodeInstruction([]byte{0x03})
		assert.Equal(t, vesting.ErrInvalidInstructionData, vesting.CodeOf(err, 0))
		_, err = vesting.DecodeInstruction(nil)
		assert.Equal(t, vesting.ErrInvalidInstructionData, vesting.CodeOf(err, 0))
	})
}

func TestClassify(t *testing.T) {
	assert.Equal(t, vesting.ClassMalformedInput, vesting.Classify(vesting.ErrInvalidInstructionData))
	assert.Equal(t, vesting.ClassAuthorization, vesting.Classify(vesting.ErrUnauthorized))
	assert.Equal(t, vesting.ClassStatePrecondition, vesting.Classify(vesting.ErrDistributionCooldown))
	assert.Equal(t, vesting.ClassAccountShape, vesting.Classify(vesting.ErrMintMismatch))
	assert.Equal(t, vesting.ClassArithmetic, vesting.Classify(vesting.ErrOverflow))
	assert.Equal(t, "no claimable amount", vesting.ErrorName(vesting.ErrNoClaimableAmount))
}
