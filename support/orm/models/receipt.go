package models

type Receipt struct {
	tableName struct{} `pg:"receipts"` //nolint:structcheck,unused

	TxID      string `pg:",pk"`
	Program   string
	ExitCode  int64 `pg:",use_zero"`
	Error     string
	Timestamp int64 `pg:",use_zero"`
	StateRoot string
	Logs      []string `pg:",array"`
}
