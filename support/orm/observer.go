package orm

import (
	"context"

	"github.com/go-pg/pg/v10"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	models "github.com/ondrix/vesting-actors/support/orm/models"
	"github.com/ondrix/vesting-actors/support/vm"
)

var log = logging.Logger("orm")

// Observer indexes committed vesting records and transaction receipts into postgres.
type Observer struct {
	db *pg.DB
}

var _ vm.Observer = (*Observer)(nil)

func NewObserver(db *pg.DB) *Observer {
	return &Observer{db: db}
}

func ReceiptModel(result *vm.MessageResult) *models.Receipt {
	return &models.Receipt{
		TxID:      result.TxID.String(),
		Program:   result.Program.String(),
		ExitCode:  int64(result.ExitCode),
		Error:     result.Error,
		Timestamp: int64(result.Timestamp),
		StateRoot: rootString(result.StateRoot),
		Logs:      result.Logs,
	}
}

// VestingRecords decodes the changed accounts that hold vesting records.
func VestingRecords(changed map[abi.Address]*vm.Account) (map[abi.Address]*vesting.State, error) {
	out := make(map[abi.Address]*vesting.State)
	for addr, a := range changed {
		if a.Owner != vesting.ProgramID || len(a.Data) != vesting.RecordSize {
			continue
		}
		st, err := vesting.UnpackState(a.Data)
		if err != nil {
			return nil, xerrors.Errorf("decode record %v: %w", addr, err)
		}
		out[addr] = st
	}
	return out, nil
}

func (o *Observer) Committed(ctx context.Context, result *vm.MessageResult, changed map[abi.Address]*vm.Account) error {
	records, err := VestingRecords(changed)
	if err != nil {
		return err
	}
	return o.db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		ctx := NewCIDContext(NewTxContext(ctx, tx), result.StateRoot)
		if _, err := tx.ModelContext(ctx, ReceiptModel(result)).OnConflict("DO NOTHING").Insert(); err != nil {
			return xerrors.Errorf("insert receipt %s: %w", result.TxID, err)
		}
		for addr, st := range records {
			if err := PersistVesting(NewAddressContext(ctx, addr), st); err != nil {
				return err
			}
		}
		log.Debugw("indexed transaction", "txid", result.TxID, "records", len(records))
		return nil
	})
}
