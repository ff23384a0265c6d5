package models

type Vesting struct {
	tableName struct{} `pg:"vestings"` //nolint:structcheck,unused

	Address              string `pg:",pk"`
	StateRoot            string
	Creator              string
	Mint                 string
	Vault                string
	CliffPeriod          int64  `pg:",use_zero"`
	VestingPeriod        int64  `pg:",use_zero"`
	TGEBasisPoints       uint16 `pg:",use_zero"`
	RecipientCount       uint8  `pg:",use_zero"`
	Funded               bool   `pg:",use_zero"`
	StartTime            int64  `pg:",use_zero"`
	TotalAmount          uint64 `pg:",use_zero"`
	TotalClaimed         uint64 `pg:",use_zero"`
	LastDistributionTime int64  `pg:",use_zero"`
}

type Recipient struct {
	tableName struct{} `pg:"vesting_recipients"` //nolint:structcheck,unused

	VestingAddress string `pg:",pk"`
	Slot           int    `pg:",pk,use_zero"`
	Wallet         string
	BasisPoints    uint16 `pg:",use_zero"`
	ClaimedAmount  uint64 `pg:",use_zero"`
	LastClaimTime  int64  `pg:",use_zero"`
}
