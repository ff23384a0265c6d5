package orm

import (
	"context"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/ipfs/go-cid"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	models "github.com/ondrix/vesting-actors/support/orm/models"
)

func CreateSchema(db *pg.DB) error {
	models := []interface{}{
		(*models.Vesting)(nil),
		(*models.Recipient)(nil),
		(*models.Receipt)(nil),
	}

	for _, model := range models {
		if err := db.Model(model).CreateTable(&orm.CreateTableOptions{
			IfNotExists: true,
		}); err != nil {
			return err
		}
	}
	return nil
}

type txCtxKey struct{}

// TxFromContext returns the Tx stored in a context, or nil if there isn't one.
func TxFromContext(ctx context.Context) *pg.Tx {
	tx, ok := ctx.Value(txCtxKey{}).(*pg.Tx)
	if !ok {
		return nil
	}
	return tx
}

// NewTxContext returns a new context with the given Client attached.
func NewTxContext(parent context.Context, tx *pg.Tx) context.Context {
	return context.WithValue(parent, txCtxKey{}, tx)
}

type cidKey struct{}

func CIDFromContext(ctx context.Context) cid.Cid {
	c, ok := ctx.Value(cidKey{}).(cid.Cid)
	if !ok {
		return cid.Undef
	}
	return c
}

func NewCIDContext(parent context.Context, c cid.Cid) context.Context {
	return context.WithValue(parent, cidKey{}, c)
}

type addrKey struct{}

func NewAddressContext(parent context.Context, addr abi.Address) context.Context {
	return context.WithValue(parent, addrKey{}, addr)
}

func AddressFromContext(ctx context.Context) (abi.Address, error) {
	a, ok := ctx.Value(addrKey{}).(abi.Address)
	if !ok {
		return abi.Undef, xerrors.New("no address in context")
	}
	return a, nil
}

func rootString(c cid.Cid) string {
	if !c.Defined() {
		return ""
	}
	return c.String()
}

// VestingModels converts the record stored at the context's address into its rows.
func VestingModels(ctx context.Context, st *vesting.State) (*models.Vesting, []*models.Recipient, error) {
	addr, err := AddressFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	v := &models.Vesting{
		Address:              addr.String(),
		StateRoot:            rootString(CIDFromContext(ctx)),
		Creator:              st.Creator.String(),
		Mint:                 st.Mint.String(),
		Vault:                st.Vault.String(),
		CliffPeriod:          int64(st.Schedule.CliffPeriod),
		VestingPeriod:        int64(st.Schedule.VestingPeriod),
		TGEBasisPoints:       st.Schedule.TGEBasisPoints,
		RecipientCount:       st.RecipientCount,
		Funded:               st.IsFunded(),
		StartTime:            int64(st.StartTime),
		TotalAmount:          st.TotalAmount,
		TotalClaimed:         st.TotalClaimed(),
		LastDistributionTime: int64(st.LastDistributionTime),
	}
	recipients := make([]*models.Recipient, 0, st.RecipientCount)
	for i, r := range st.ActiveRecipients() {
		recipients = append(recipients, &models.Recipient{
			VestingAddress: v.Address,
			Slot:           i,
			Wallet:         r.Wallet.String(),
			BasisPoints:    r.BasisPoints,
			ClaimedAmount:  r.ClaimedAmount,
			LastClaimTime:  int64(r.LastClaimTime),
		})
	}
	return v, recipients, nil
}

// PersistVesting upserts the record at the context's address using the context's transaction.
func PersistVesting(ctx context.Context, st *vesting.State) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return xerrors.New("no transaction in context")
	}
	v, recipients, err := VestingModels(ctx, st)
	if err != nil {
		return err
	}
	if _, err := tx.ModelContext(ctx, v).
		OnConflict("(address) DO UPDATE").
		Set("state_root = EXCLUDED.state_root").
		Set("funded = EXCLUDED.funded").
		Set("start_time = EXCLUDED.start_time").
		Set("total_amount = EXCLUDED.total_amount").
		Set("total_claimed = EXCLUDED.total_claimed").
		Set("last_distribution_time = EXCLUDED.last_distribution_time").
		Insert(); err != nil {
		return xerrors.Errorf("upsert vesting %s: %w", v.Address, err)
	}
	if len(recipients) == 0 {
		return nil
	}
	if _, err := tx.ModelContext(ctx, &recipients).
		OnConflict("(vesting_address, slot) DO UPDATE").
		Set("claimed_amount = EXCLUDED.claimed_amount").
		Set("last_claim_time = EXCLUDED.last_claim_time").
		Insert(); err != nil {
		return xerrors.Errorf("upsert recipients of %s: %w", v.Address, err)
	}
	return nil
}
