package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iotaledger/hive.go/core/ioutils"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
	"github.com/ondrix/vesting-actors/support/vm"
)

var printer = message.NewPrinter(language.English)

// loadLedger opens the snapshot named by --state.
func loadLedger(cctx *cli.Context) (*vm.VM, error) {
	v := vm.NewVM(context.Background(), vm.VestingPrograms())
	if err := v.LoadSnapshot(cctx.String("state")); err != nil {
		return nil, err
	}
	return v, nil
}

func saveLedger(cctx *cli.Context, v *vm.VM) error {
	return v.SaveSnapshot(cctx.String("state"))
}

// submit signs, applies and persists one instruction, then prints its receipt.
func submit(cctx *cli.Context, v *vm.VM, ins vm.Instruction, signers ...ed25519.PrivateKey) (*vm.MessageResult, error) {
	tx, err := vm.NewTransaction(ins, signers...)
	if err != nil {
		return nil, err
	}
	result := v.ApplyTransaction(tx)
	log.Debugw("applied transaction", "txid", result.TxID, "exitCode", result.ExitCode)
	w := cctx.App.Writer
	fmt.Fprintf(w, "tx %s\n", result.TxID)
	for _, l := range result.Logs {
		fmt.Fprintf(w, "  log: %s\n", l)
	}
	if !result.Ok() {
		return result, cli.Exit(fmt.Sprintf("transaction failed with exit code %d (%s, %s): %s",
			result.ExitCode, vesting.ErrorName(result.ExitCode), vesting.Classify(result.ExitCode), result.Error), 2)
	}
	fmt.Fprintf(w, "state root %s\n", result.StateRoot)
	return result, saveLedger(cctx, v)
}

var genesisCmd = &cli.Command{
	Name:      "genesis",
	Usage:     "Write a new ledger snapshot from a genesis file",
	ArgsUsage: "GENESIS.json",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Usage: "overwrite an existing snapshot"},
	},
	Action: func(cctx *cli.Context) error {
		path := cctx.Args().First()
		if path == "" {
			return errors.New("genesis file required")
		}
		if _, err := os.Stat(cctx.String("state")); err == nil && !cctx.Bool("force") {
			return errors.Errorf("snapshot %s exists, use --force to replace it", cctx.String("state"))
		}
		var g vm.Genesis
		if err := ioutils.ReadJSONFromFile(path, &g); err != nil {
			return errors.Wrapf(err, "read genesis %s", path)
		}
		if g.Now == 0 {
			g.Now = abi.Timestamp(time.Now().Unix())
		}
		v := vm.NewVM(context.Background(), vm.VestingPrograms())
		if err := v.ApplyGenesis(&g); err != nil {
			return err
		}
		if err := saveLedger(cctx, v); err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "genesis at %s, state root %s\n", g.Now.Time().Format(time.RFC3339), v.StateRoot())
		return nil
	},
}

var mintCmd = &cli.Command{
	Name:  "mint",
	Usage: "Manage token mints",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Install a mint at the address of a key",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "mint", Required: true, Usage: "key name or address of the mint"},
				&cli.StringFlag{Name: "authority", Required: true, Usage: "key name or address of the mint authority"},
				&cli.UintFlag{Name: "decimals", Value: 6},
			},
			Action: func(cctx *cli.Context) error {
				ks := newKeyStore(cctx)
				mint, err := ks.Resolve(cctx.String("mint"))
				if err != nil {
					return err
				}
				authority, err := ks.Resolve(cctx.String("authority"))
				if err != nil {
					return err
				}
				decimals := cctx.Uint("decimals")
				if decimals > math.MaxUint8 {
					return errors.Errorf("decimals %d out of range", decimals)
				}
				v, err := loadLedger(cctx)
				if err != nil {
					return err
				}
				if err := v.CreateMint(mint, uint8(decimals), authority); err != nil {
					return err
				}
				return saveLedger(cctx, v)
			},
		},
		{
			Name:  "to",
			Usage: "Mint tokens into an owner's associated token account",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "mint", Required: true},
				&cli.StringFlag{Name: "owner", Required: true},
				&cli.Uint64Flag{Name: "amount", Required: true},
			},
			Action: func(cctx *cli.Context) error {
				ks := newKeyStore(cctx)
				mint, err := ks.Resolve(cctx.String("mint"))
				if err != nil {
					return err
				}
				owner, err := ks.Resolve(cctx.String("owner"))
				if err != nil {
					return err
				}
				v, err := loadLedger(cctx)
				if err != nil {
					return err
				}
				ata, err := v.MintToOwner(mint, owner, cctx.Uint64("amount"))
				if err != nil {
					return err
				}
				fmt.Fprintf(cctx.App.Writer, "%s\n", ata)
				return saveLedger(cctx, v)
			},
		},
	},
}

// parseRecipient reads WALLET:BASISPOINTS.
func parseRecipient(ks *keyStore, s string) (vesting.RecipientShare, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return vesting.RecipientShare{}, errors.Errorf("recipient %q is not WALLET:BASISPOINTS", s)
	}
	wallet, err := ks.Resolve(s[:i])
	if err != nil {
		return vesting.RecipientShare{}, err
	}
	bps, err := strconv.ParseUint(s[i+1:], 10, 16)
	if err != nil {
		return vesting.RecipientShare{}, errors.Wrapf(err, "recipient %q basis points", s)
	}
	return vesting.RecipientShare{Wallet: wallet, BasisPoints: abi.BasisPoints(bps)}, nil
}

// parseDuration accepts Go durations ("90m") or plain seconds. The ledger clock has second
// resolution, so fractional seconds are rejected.
func parseDuration(s string) (abi.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return abi.Duration(n), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d%time.Second != 0 {
		return 0, errors.Errorf("duration %s is not a whole number of seconds", s)
	}
	return abi.Duration(d / time.Second), nil
}

var createCmd = &cli.Command{
	Name:  "create",
	Usage: "Create a vesting record",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "creator", Required: true, Usage: "key name of the creator"},
		&cli.StringFlag{Name: "mint", Required: true},
		&cli.StringSliceFlag{Name: "recipient", Required: true, Usage: "WALLET:BASISPOINTS, repeatable"},
		&cli.StringFlag{Name: "cliff", Value: "0", Usage: "cliff period"},
		&cli.StringFlag{Name: "vesting", Required: true, Usage: "vesting period"},
		&cli.UintFlag{Name: "tge", Usage: "basis points released at funding"},
		&cli.Uint64Flag{Name: "nonce"},
	},
	Action: func(cctx *cli.Context) error {
		ks := newKeyStore(cctx)
		creatorKey, err := ks.Get(cctx.String("creator"))
		if err != nil {
			return err
		}
		mint, err := ks.Resolve(cctx.String("mint"))
		if err != nil {
			return err
		}
		tge := cctx.Uint("tge")
		if tge > math.MaxUint16 {
			return errors.Errorf("tge %d out of range", tge)
		}
		params := &vesting.CreateParams{
			TGEBasisPoints: abi.BasisPoints(tge),
			Nonce:          cctx.Uint64("nonce"),
		}
		if params.CliffPeriod, err = parseDuration(cctx.String("cliff")); err != nil {
			return errors.Wrap(err, "cliff")
		}
		if params.VestingPeriod, err = parseDuration(cctx.String("vesting")); err != nil {
			return errors.Wrap(err, "vesting")
		}
		for _, s := range cctx.StringSlice("recipient") {
			r, err := parseRecipient(ks, s)
			if err != nil {
				return err
			}
			params.Recipients = append(params.Recipients, r)
		}

		v, err := loadLedger(cctx)
		if err != nil {
			return err
		}
		ins, addrs, err := vm.CreateVestingInstruction(keyAddress(creatorKey), mint, params)
		if err != nil {
			return err
		}
		if _, err := submit(cctx, v, ins, creatorKey); err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "record %s\nvault %s\n", addrs.Record, addrs.Vault)
		return nil
	},
}

var fundCmd = &cli.Command{
	Name:  "fund",
	Usage: "Fund a vesting record from the funder's associated token account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "funder", Required: true, Usage: "key name of the funder"},
		&cli.StringFlag{Name: "record", Required: true},
		&cli.Uint64Flag{Name: "amount", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		ks := newKeyStore(cctx)
		funderKey, err := ks.Get(cctx.String("funder"))
		if err != nil {
			return err
		}
		record, err := abi.ParseAddress(cctx.String("record"))
		if err != nil {
			return err
		}
		v, err := loadLedger(cctx)
		if err != nil {
			return err
		}
		st, err := v.GetVesting(record)
		if err != nil {
			return err
		}
		source, _, err := token.AssociatedAddress(keyAddress(funderKey), st.Mint)
		if err != nil {
			return err
		}
		ins, err := vm.FundVestingInstruction(keyAddress(funderKey), source, record, cctx.Uint64("amount"))
		if err != nil {
			return err
		}
		_, err = submit(cctx, v, ins, funderKey)
		return err
	},
}

var distributeCmd = &cli.Command{
	Name:  "distribute",
	Usage: "Pay every recipient what has vested since their last claim",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "creator", Required: true, Usage: "key name of the creator"},
		&cli.StringFlag{Name: "record", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		creatorKey, err := newKeyStore(cctx).Get(cctx.String("creator"))
		if err != nil {
			return err
		}
		record, err := abi.ParseAddress(cctx.String("record"))
		if err != nil {
			return err
		}
		v, err := loadLedger(cctx)
		if err != nil {
			return err
		}
		st, err := v.GetVesting(record)
		if err != nil {
			return err
		}
		ins, err := vm.DistributeVestingInstruction(keyAddress(creatorKey), record, st)
		if err != nil {
			return err
		}
		result, err := submit(cctx, v, ins, creatorKey)
		if err != nil {
			return err
		}
		ret, err := decodeDistributeReturn(result.Return)
		if err != nil {
			return err
		}
		printDistributeReturn(cctx, ret)
		return nil
	},
}

var showCmd = &cli.Command{
	Name:      "show",
	Usage:     "Print a vesting record with its vested and claimable amounts",
	ArgsUsage: "RECORD",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "at", Usage: "evaluate at this offset from the ledger clock, e.g. 30m"},
	},
	Action: func(cctx *cli.Context) error {
		record, err := abi.ParseAddress(cctx.Args().First())
		if err != nil {
			return err
		}
		v, err := loadLedger(cctx)
		if err != nil {
			return err
		}
		st, err := v.GetVesting(record)
		if err != nil {
			return err
		}
		at := v.Now()
		if s := cctx.String("at"); s != "" {
			d, err := parseDuration(s)
			if err != nil {
				return err
			}
			at = at.Add(d)
		}
		printState(cctx, record, st, at)
		return nil
	},
}

func printState(cctx *cli.Context, record abi.Address, st *vesting.State, at abi.Timestamp) {
	w := cctx.App.Writer
	fmt.Fprintf(w, "record     %s\n", record)
	fmt.Fprintf(w, "creator    %s\n", st.Creator)
	fmt.Fprintf(w, "mint       %s\n", st.Mint)
	fmt.Fprintf(w, "vault      %s\n", st.Vault)
	fmt.Fprintf(w, "schedule   cliff %s, vesting %s, tge %d bps\n",
		st.Schedule.CliffPeriod, st.Schedule.VestingPeriod, st.Schedule.TGEBasisPoints)
	if !st.IsFunded() {
		fmt.Fprintln(w, "funded     no")
	} else {
		printer.Fprintf(w, "funded     %d at %s\n", st.TotalAmount, st.StartTime.Time().Format(time.RFC3339))
		printer.Fprintf(w, "claimed    %d\n", st.TotalClaimed())
	}
	if cd := st.CooldownRemaining(at); cd > 0 {
		fmt.Fprintf(w, "cooldown   %s\n", cd)
	}
	for i, r := range st.ActiveRecipients() {
		printer.Fprintf(w, "  [%d] %s %5d bps  claimed %d", i, r.Wallet, r.BasisPoints, r.ClaimedAmount)
		if st.IsFunded() {
			printer.Fprintf(w, "  vested %d  claimable %d", st.Vested(i, at), st.Claimable(i, at))
		}
		fmt.Fprintln(w)
	}
}

var balanceCmd = &cli.Command{
	Name:      "balance",
	Usage:     "Print the balance of an owner's associated token account",
	ArgsUsage: "OWNER",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "mint", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		ks := newKeyStore(cctx)
		owner, err := ks.Resolve(cctx.Args().First())
		if err != nil {
			return err
		}
		mint, err := ks.Resolve(cctx.String("mint"))
		if err != nil {
			return err
		}
		v, err := loadLedger(cctx)
		if err != nil {
			return err
		}
		ata, _, err := token.AssociatedAddress(owner, mint)
		if err != nil {
			return err
		}
		amt, err := v.TokenBalance(ata)
		if err != nil {
			return err
		}
		printer.Fprintf(cctx.App.Writer, "%s %d\n", ata, amt)
		return nil
	},
}

var clockCmd = &cli.Command{
	Name:  "clock",
	Usage: "Inspect or move the ledger clock",
	Subcommands: []*cli.Command{
		{
			Name:  "now",
			Usage: "Print the ledger clock",
			Action: func(cctx *cli.Context) error {
				v, err := loadLedger(cctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cctx.App.Writer, "%d %s\n", v.Now(), v.Now().Time().Format(time.RFC3339))
				return nil
			},
		},
		{
			Name:      "advance",
			Usage:     "Move the ledger clock forward",
			ArgsUsage: "DURATION",
			Action: func(cctx *cli.Context) error {
				d, err := parseDuration(cctx.Args().First())
				if err != nil {
					return err
				}
				if d < 0 {
					return errors.New("the clock only moves forward")
				}
				v, err := loadLedger(cctx)
				if err != nil {
					return err
				}
				now := v.Advance(d)
				fmt.Fprintf(cctx.App.Writer, "%d %s\n", now, now.Time().Format(time.RFC3339))
				return saveLedger(cctx, v)
			},
		},
	},
}

var deriveCmd = &cli.Command{
	Name:  "derive",
	Usage: "Print the addresses a Create would allocate",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "creator", Required: true},
		&cli.Uint64Flag{Name: "nonce"},
	},
	Action: func(cctx *cli.Context) error {
		creator, err := newKeyStore(cctx).Resolve(cctx.String("creator"))
		if err != nil {
			return err
		}
		addrs, err := vesting.DeriveAddresses(vesting.ProgramID, creator, cctx.Uint64("nonce"))
		if err != nil {
			return err
		}
		w := cctx.App.Writer
		fmt.Fprintf(w, "record    %s (bump %d)\n", addrs.Record, addrs.RecordBump)
		fmt.Fprintf(w, "vault     %s (bump %d)\n", addrs.Vault, addrs.VaultBump)
		fmt.Fprintf(w, "authority %s (bump %d)\n", addrs.Authority, addrs.AuthorityBump)
		return nil
	},
}
