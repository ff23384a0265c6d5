package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/filecoin-project/go-bitfield"
	"github.com/multiformats/go-multibase"
	"github.com/urfave/cli/v2"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
)

var decodeCmd = &cli.Command{
	Name:  "decode",
	Usage: "Decode a hex or multibase encoded data structure",
	Subcommands: []*cli.Command{
		decodeRecordCmd,
		decodeInstructionCmd,
		decodeReturnCmd,
		decodeBFCmd,
	},
}

var decodeRecordCmd = &cli.Command{
	Name:        "record",
	Description: "decode a vesting record account",
	Action:      runDecodeRecordCmd,
}

var decodeInstructionCmd = &cli.Command{
	Name:        "instruction",
	Description: "decode vesting instruction data",
	Action:      runDecodeInstructionCmd,
}

var decodeReturnCmd = &cli.Command{
	Name:        "return",
	Description: "decode the return value of a distribution",
	Action:      runDecodeReturnCmd,
}

var decodeBFCmd = &cli.Command{
	Name:        "bf",
	Description: "decode a bitfield of recipient slots",
	Action:      runDecodeBFCmd,
}

// decodeArg reads hex, or multibase when the argument carries a multibase prefix that is not plain hex.
func decodeArg(cctx *cli.Context) ([]byte, error) {
	s := strings.TrimSpace(cctx.Args().First())
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	_, b, err := multibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("argument is neither hex nor multibase: %w", err)
	}
	return b, nil
}

func writeJSON(cctx *cli.Context, v interface{}) error {
	enc := json.NewEncoder(cctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDecodeRecordCmd(cctx *cli.Context) error {
	b, err := decodeArg(cctx)
	if err != nil {
		return err
	}
	st, err := vesting.UnpackState(b)
	if err != nil {
		return err
	}
	return writeJSON(cctx, st)
}

func runDecodeInstructionCmd(cctx *cli.Context) error {
	b, err := decodeArg(cctx)
	if err != nil {
		return err
	}
	ins, err := vesting.DecodeInstruction(b)
	if err != nil {
		return fmt.Errorf("%w (exit code %d)", err, vesting.CodeOf(err, vesting.ErrInvalidInstructionData))
	}
	return writeJSON(cctx, ins)
}

func decodeDistributeReturn(b []byte) (*vesting.DistributeReturn, error) {
	var ret vesting.DistributeReturn
	if err := ret.UnmarshalCBOR(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return &ret, nil
}

func printDistributeReturn(cctx *cli.Context, ret *vesting.DistributeReturn) {
	w := cctx.App.Writer
	for _, p := range ret.Payouts {
		printer.Fprintf(w, "  slot %d %s +%d\n", p.Slot, p.Wallet, p.Amount)
	}
	printer.Fprintf(w, "distributed %d at %s\n", ret.Total, abi.Timestamp(ret.Timestamp).Time().Format("2006-01-02T15:04:05Z"))
}

func runDecodeReturnCmd(cctx *cli.Context) error {
	b, err := decodeArg(cctx)
	if err != nil {
		return err
	}
	ret, err := decodeDistributeReturn(b)
	if err != nil {
		return err
	}
	printDistributeReturn(cctx, ret)
	return nil
}

func runDecodeBFCmd(cctx *cli.Context) error {
	b, err := decodeArg(cctx)
	if err != nil {
		return err
	}

	bf, err := bitfield.NewFromBytes(b)
	if err != nil {
		return err
	}

	return bf.ForEach(func(u uint64) error {
		_, err := fmt.Fprintln(cctx.App.Writer, u)
		return err
	})
}
