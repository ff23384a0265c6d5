package vesting_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
)

func TestCheckStateInvariants(t *testing.T) {
	shares := []vesting.RecipientShare{
		{Wallet: abi.Address{1}, BasisPoints: 6000},
		{Wallet: abi.Address{2}, BasisPoints: 4000},
	}
	schedule := vesting.Schedule{CliffPeriod: 300, VestingPeriod: 1200, TGEBasisPoints: 1000}

	t.Run("funded record is consistent", func(t *testing.T) {
		st := vesting.ConstructState(abi.Address{9}, abi.Address{8}, abi.Address{7}, schedule, shares)
		st.Fund(startTime, fundAmount)
		summary, msgs := vesting.CheckStateInvariants(st, startTime)
		assert.True(t, msgs.IsEmpty(), "%v", msgs.Messages())
		assert.Equal(t, 2, summary.RecipientCount)
		assert.True(t, summary.Funded)
	})

	t.Run("record that cannot be decoded", func(t *testing.T) {
		st := vesting.ConstructState(abi.Address{9}, abi.Address{8}, abi.Address{7}, schedule, shares)
		st.RecipientCount = vesting.MaxRecipients + 1
		_, msgs := vesting.CheckStateInvariants(st, startTime)
		require.False(t, msgs.IsEmpty())
		found := false
		for _, m := range msgs.Messages() {
			if strings.HasPrefix(m, "record does not decode: ") {
				found = true
			}
		}
		assert.True(t, found, "%v", msgs.Messages())
	})
}
